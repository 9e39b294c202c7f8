package monitor

import (
	"context"
	"log"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/capture"
	"github.com/awsl-bot/awsl-bot/internal/classify"
	"github.com/awsl-bot/awsl-bot/internal/ocr"
)

// SeenStore is the dedup store: fingerprints already processed are skipped
// before the gate is ever consulted.
type SeenStore interface {
	HasSeen(ctx context.Context, fingerprint string) (bool, error)
	MarkSeen(ctx context.Context, fingerprint string, now time.Time) error
}

// TriggerGate decides whether a novel message fires a response.
type TriggerGate interface {
	ShouldTrigger(msg classify.Message, now time.Time) bool
}

type Responder interface {
	Respond(ctx context.Context) error
}

// Monitor runs the capture -> recognize -> classify -> filter -> gate ->
// respond cycle on a fixed interval. One cycle is in flight at a time; a
// cycle that overruns the interval is followed immediately by the next one.
// Errors from collaborators abort the current cycle only.
type Monitor struct {
	frames     capture.FrameSource
	region     capture.Region
	recognizer ocr.Recognizer
	classifier *classify.Classifier
	store      SeenStore
	gate       TriggerGate
	responder  Responder
	interval   time.Duration

	now func() time.Time
}

func New(
	frames capture.FrameSource,
	region capture.Region,
	recognizer ocr.Recognizer,
	classifier *classify.Classifier,
	store SeenStore,
	gate TriggerGate,
	responder Responder,
	interval time.Duration,
) *Monitor {
	return &Monitor{
		frames:     frames,
		region:     region,
		recognizer: recognizer,
		classifier: classifier,
		store:      store,
		gate:       gate,
		responder:  responder,
		interval:   interval,
		now:        time.Now,
	}
}

// Run polls until ctx is canceled. Cancellation is checked at the top of
// each cycle; an in-flight response is allowed to finish.
func (m *Monitor) Run(ctx context.Context) error {
	log.Printf("monitor started, polling every %s", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	if err := ctx.Err(); err != nil {
		log.Printf("monitor stopped")
		return err
	}

	m.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full pipeline pass. All failures are contained:
// they are logged and the cycle ends, the loop resumes on the next tick.
func (m *Monitor) RunCycle(ctx context.Context) {
	frame, err := m.frames.Capture(ctx, m.region)
	if err != nil {
		log.Printf("capture failed, skipping cycle: %v", err)
		return
	}

	fragments, err := m.recognizer.Recognize(ctx, frame)
	if err != nil {
		log.Printf("recognition failed, treating as empty frame: %v", err)
		fragments = nil
	}

	now := m.now()
	messages := m.classifier.Classify(fragments, now)

	for _, msg := range messages {
		seen, err := m.store.HasSeen(ctx, msg.Fingerprint)
		if err != nil {
			log.Printf("dedup lookup failed for %s: %v", msg.Fingerprint, err)
			continue
		}
		if seen {
			continue
		}

		// Mark before gating: a crash between detection and response must
		// not replay the message as novel on restart.
		if err := m.markSeen(ctx, msg.Fingerprint, now); err != nil {
			log.Printf("failed to mark message seen, leaving unmarked: %v", err)
			continue
		}

		if !m.gate.ShouldTrigger(msg, now) {
			continue
		}

		log.Printf("trigger fired for message %q", msg.Text)
		if err := m.responder.Respond(ctx); err != nil {
			// Cooldown is already consumed; the retry path is the next
			// keyword occurrence after it expires.
			log.Printf("response failed: %v", err)
		}
	}
}

// markSeen retries a transient write failure once.
func (m *Monitor) markSeen(ctx context.Context, fingerprint string, now time.Time) error {
	err := m.store.MarkSeen(ctx, fingerprint, now)
	if err == nil {
		return nil
	}
	log.Printf("mark seen failed, retrying once: %v", err)
	return m.store.MarkSeen(ctx, fingerprint, now)
}
