package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/ocr"
)

type Origin string

const (
	// OriginOther marks a message authored by the monitored party (left
	// side of the chat region). Only these may trigger a response.
	OriginOther Origin = "other"
	// OriginOwn marks the bot account's own messages (right side). They
	// never trigger, otherwise the bot's replies would echo back through
	// capture and retrigger it.
	OriginOwn Origin = "own"
)

type Message struct {
	Text        string
	Origin      Origin
	Fingerprint string
	Timestamp   time.Time
}

// Classifier groups OCR fragments into chat messages. Fragments on the same
// visual line (YRatio within LineTolerance) belong to one message bubble;
// the bubble's horizontal position decides who wrote it.
type Classifier struct {
	ConfidenceFloor float64
	OriginThreshold float64
	LineTolerance   float64
}

func NewClassifier(confidenceFloor, originThreshold, lineTolerance float64) *Classifier {
	return &Classifier{
		ConfidenceFloor: confidenceFloor,
		OriginThreshold: originThreshold,
		LineTolerance:   lineTolerance,
	}
}

var clockPattern = regexp.MustCompile(`^[\d:]+$`)

// chromeTokens are UI artifacts the OCR picks up around message bubbles.
var chromeTokens = map[string]bool{
	"<":                 true,
	">":                 true,
	"S":                 true,
	"...":               true,
	"Image":             true,
	"Animated Stickers": true,
}

// isNoise filters per-fragment UI artifacts. Single CJK characters are real
// words, so short fragments are kept here; too-short *messages* are dropped
// after grouping instead.
func isNoise(text string) bool {
	return chromeTokens[text] || clockPattern.MatchString(text)
}

// Classify converts one frame's fragments into ordered messages, oldest
// (topmost) first. Low-confidence and noise fragments are dropped before
// grouping. An empty input yields an empty output.
func (c *Classifier) Classify(fragments []ocr.Fragment, now time.Time) []Message {
	kept := make([]ocr.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Confidence < c.ConfidenceFloor {
			continue
		}
		if isNoise(f.Text) {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].YRatio < kept[j].YRatio
	})

	var messages []Message
	cluster := []ocr.Fragment{kept[0]}
	for _, f := range kept[1:] {
		if f.YRatio-cluster[len(cluster)-1].YRatio <= c.LineTolerance {
			cluster = append(cluster, f)
			continue
		}
		if msg, ok := c.buildMessage(cluster, now); ok {
			messages = append(messages, msg)
		}
		cluster = []ocr.Fragment{f}
	}
	if msg, ok := c.buildMessage(cluster, now); ok {
		messages = append(messages, msg)
	}

	return messages
}

func (c *Classifier) buildMessage(cluster []ocr.Fragment, now time.Time) (Message, bool) {
	sort.SliceStable(cluster, func(i, j int) bool {
		return cluster[i].XRatio < cluster[j].XRatio
	})

	var sb strings.Builder
	for _, f := range cluster {
		sb.WriteString(f.Text)
	}
	text := sb.String()
	if len([]rune(text)) < 2 {
		return Message{}, false
	}

	origin := OriginOwn
	if cluster[0].XRatio < c.OriginThreshold {
		origin = OriginOther
	}

	return Message{
		Text:        text,
		Origin:      origin,
		Fingerprint: Fingerprint(text),
		Timestamp:   now,
	}, true
}

// Fingerprint returns a stable hash of the normalized text. Two captures of
// the same on-screen message always hash identically, which is what the
// dedup store keys on.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// NormalizeText lowercases and collapses all whitespace runs so that OCR
// jitter between captures does not change the fingerprint.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
