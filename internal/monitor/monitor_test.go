package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/capture"
	"github.com/awsl-bot/awsl-bot/internal/classify"
	"github.com/awsl-bot/awsl-bot/internal/gate"
	"github.com/awsl-bot/awsl-bot/internal/ocr"
)

type fakeFrameSource struct {
	frames [][]byte
	errs   []error
	calls  int
}

func (f *fakeFrameSource) Capture(ctx context.Context, region capture.Region) ([]byte, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.frames) {
		return f.frames[i], nil
	}
	return []byte("frame"), nil
}

type fakeRecognizer struct {
	fragments [][]ocr.Fragment
	errs      []error
	calls     int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) ([]ocr.Fragment, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.fragments) {
		return f.fragments[i], nil
	}
	return nil, nil
}

type fakeStore struct {
	seen     map[string]bool
	markErrs []error
	markCall int
	ops      []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}}
}

func (s *fakeStore) HasSeen(ctx context.Context, fp string) (bool, error) {
	s.ops = append(s.ops, "has:"+fp)
	return s.seen[fp], nil
}

func (s *fakeStore) MarkSeen(ctx context.Context, fp string, now time.Time) error {
	i := s.markCall
	s.markCall++
	if i < len(s.markErrs) && s.markErrs[i] != nil {
		return s.markErrs[i]
	}
	s.ops = append(s.ops, "mark:"+fp)
	s.seen[fp] = true
	return nil
}

type fakeResponder struct {
	err   error
	calls int
}

func (r *fakeResponder) Respond(ctx context.Context) error {
	r.calls++
	return r.err
}

func fragmentsFor(text string, x float64) []ocr.Fragment {
	return []ocr.Fragment{{Text: text, XRatio: x, YRatio: 0.3, Confidence: 0.9}}
}

func newTestMonitor(frames *fakeFrameSource, rec *fakeRecognizer, store *fakeStore, resp *fakeResponder) (*Monitor, *gate.Gate) {
	classifier := classify.NewClassifier(0.6, 0.2, 0.012)
	g := gate.New("awsl", 10*time.Second)
	region := capture.Region{Left: 0.25, Top: 0.1, Width: 0.7, Height: 0.75}
	m := New(frames, region, rec, classifier, store, g, resp, 100*time.Millisecond)
	return m, g
}

// Scenario from the end-to-end contract: cycle 1 sees a non-keyword
// message, cycle 2 sees a keyword message and fires, cycle 3 sees the same
// keyword message re-rendered and the dedup store filters it before the
// gate is consulted.
func TestMonitorEndToEnd(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{
		fragments: [][]ocr.Fragment{
			fragmentsFor("今天天气不错", 0.05),
			fragmentsFor("awsl!!!", 0.05),
			fragmentsFor("awsl!!!", 0.05),
		},
	}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, g := newTestMonitor(frames, rec, store, resp)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		return base.Add(time.Duration(tick) * 2 * time.Second)
	}

	ctx := context.Background()

	// Cycle 1: no keyword, fingerprint recorded, no trigger.
	m.RunCycle(ctx)
	if resp.calls != 0 {
		t.Fatalf("expected no response after cycle 1, got %d", resp.calls)
	}
	if !store.seen[classify.Fingerprint("今天天气不错")] {
		t.Fatal("expected cycle 1 message to be marked seen")
	}

	// Cycle 2: keyword from Other fires, cooldown starts.
	tick++
	m.RunCycle(ctx)
	if resp.calls != 1 {
		t.Fatalf("expected 1 response after cycle 2, got %d", resp.calls)
	}
	if g.LastTrigger().IsZero() {
		t.Fatal("expected cooldown to start after trigger")
	}

	// Cycle 3: same text re-rendered, filtered by dedup before gating.
	tick++
	m.RunCycle(ctx)
	if resp.calls != 1 {
		t.Fatalf("expected dedup to swallow repeat, got %d responses", resp.calls)
	}

	fp := classify.Fingerprint("awsl!!!")
	marks := 0
	for _, op := range store.ops {
		if op == "mark:"+fp {
			marks++
		}
	}
	if marks != 1 {
		t.Errorf("expected exactly 1 mark for repeated message, got %d", marks)
	}
}

func TestMonitorMarksBeforeGating(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{fragments: [][]ocr.Fragment{fragmentsFor("awsl", 0.05)}}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	m.RunCycle(context.Background())

	fp := classify.Fingerprint("awsl")
	if len(store.ops) < 2 || store.ops[0] != "has:"+fp || store.ops[1] != "mark:"+fp {
		t.Errorf("expected has then mark before gating, got %v", store.ops)
	}
	if resp.calls != 1 {
		t.Errorf("expected trigger after marking, got %d responses", resp.calls)
	}
}

func TestMonitorCaptureFailureSkipsCycle(t *testing.T) {
	frames := &fakeFrameSource{errs: []error{fmt.Errorf("window not visible")}}
	rec := &fakeRecognizer{fragments: [][]ocr.Fragment{fragmentsFor("awsl", 0.05)}}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	ctx := context.Background()
	m.RunCycle(ctx)

	if rec.calls != 0 {
		t.Error("expected recognition to be skipped after capture failure")
	}
	if resp.calls != 0 {
		t.Error("expected no response after capture failure")
	}

	// The next cycle proceeds normally.
	m.RunCycle(ctx)
	if resp.calls != 1 {
		t.Errorf("expected loop to recover on next cycle, got %d responses", resp.calls)
	}
}

func TestMonitorRecognitionFailureTreatedAsEmpty(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{errs: []error{fmt.Errorf("engine error")}}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	m.RunCycle(context.Background())

	if len(store.ops) != 0 {
		t.Errorf("expected no store access for failed recognition, got %v", store.ops)
	}
	if resp.calls != 0 {
		t.Error("expected no response for failed recognition")
	}
}

func TestMonitorMarkSeenRetriesOnce(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{fragments: [][]ocr.Fragment{fragmentsFor("awsl", 0.05)}}
	store := newFakeStore()
	store.markErrs = []error{fmt.Errorf("transient write failure")}
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	m.RunCycle(context.Background())

	if store.markCall != 2 {
		t.Errorf("expected 2 mark attempts, got %d", store.markCall)
	}
	if resp.calls != 1 {
		t.Errorf("expected trigger after successful retry, got %d responses", resp.calls)
	}
}

func TestMonitorMarkSeenFailureLeavesMessageUnmarked(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{fragments: [][]ocr.Fragment{
		fragmentsFor("awsl", 0.05),
		fragmentsFor("awsl", 0.05),
	}}
	store := newFakeStore()
	store.markErrs = []error{fmt.Errorf("down"), fmt.Errorf("down")}
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	ctx := context.Background()
	m.RunCycle(ctx)

	if resp.calls != 0 {
		t.Error("expected no response while message is unmarked")
	}

	// The store recovers; the message is still novel and may now trigger.
	m.RunCycle(ctx)
	if resp.calls != 1 {
		t.Errorf("expected re-processing after store recovery, got %d responses", resp.calls)
	}
}

func TestMonitorResponseFailureConsumesCooldown(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{fragments: [][]ocr.Fragment{fragmentsFor("awsl", 0.05)}}
	store := newFakeStore()
	resp := &fakeResponder{err: fmt.Errorf("asset fetch failed")}
	m, g := newTestMonitor(frames, rec, store, resp)

	m.RunCycle(context.Background())

	if resp.calls != 1 {
		t.Fatalf("expected 1 response attempt, got %d", resp.calls)
	}
	if g.LastTrigger().IsZero() {
		t.Error("cooldown must stay consumed after a failed response")
	}
}

func TestMonitorOwnMessageNeverTriggers(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{fragments: [][]ocr.Fragment{fragmentsFor("说了awsl", 0.55)}}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	m.RunCycle(context.Background())

	if resp.calls != 0 {
		t.Error("own-origin message with keyword must not trigger")
	}
	if !store.seen[classify.Fingerprint("说了awsl")] {
		t.Error("own message should still be marked seen")
	}
}

func TestMonitorRunCanceledBeforeStart(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Run(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if frames.calls != 0 {
		t.Errorf("expected no capture with an already-canceled context, got %d", frames.calls)
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	frames := &fakeFrameSource{}
	rec := &fakeRecognizer{}
	store := newFakeStore()
	resp := &fakeResponder{}
	m, _ := newTestMonitor(frames, rec, store, resp)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(250 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	if frames.calls < 2 {
		t.Errorf("expected multiple polling cycles before stop, got %d", frames.calls)
	}
}
