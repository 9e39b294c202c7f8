package gate

import (
	"testing"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/classify"
)

func otherMessage(text string) classify.Message {
	return classify.Message{
		Text:        text,
		Origin:      classify.OriginOther,
		Fingerprint: classify.Fingerprint(text),
	}
}

func TestShouldTriggerKeywordMatch(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"exact keyword", "awsl", true},
		{"keyword with suffix", "awsl!!!", true},
		{"keyword embedded in CJK", "这只猫awsl了", true},
		{"uppercase keyword", "AWSL", true},
		{"no keyword", "今天天气不错", false},
		{"partial keyword", "aws", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New("awsl", 10*time.Second)
			got := g.ShouldTrigger(otherMessage(tt.text), time.Now())
			if got != tt.expected {
				t.Errorf("ShouldTrigger(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestShouldTriggerNormalizesKeyword(t *testing.T) {
	tests := []struct {
		name     string
		keyword  string
		text     string
		expected bool
	}{
		{"uppercase keyword", "AWSL", "这只猫awsl了", true},
		{"keyword with extra whitespace", "awsl  呜", "awsl 呜呜", true},
		{"padded keyword", "  awsl  ", "awsl!!!", true},
		{"normalized keyword still needs a match", "awsl 呜", "awsl", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.keyword, 10*time.Second)
			got := g.ShouldTrigger(otherMessage(tt.text), time.Now())
			if got != tt.expected {
				t.Errorf("ShouldTrigger(%q) with keyword %q = %v, want %v", tt.text, tt.keyword, got, tt.expected)
			}
		})
	}
}

func TestShouldTriggerNeverFiresForOwnMessages(t *testing.T) {
	g := New("awsl", 10*time.Second)

	msg := classify.Message{
		Text:        "说了awsl",
		Origin:      classify.OriginOwn,
		Fingerprint: classify.Fingerprint("说了awsl"),
	}

	if g.ShouldTrigger(msg, time.Now()) {
		t.Error("own message with keyword must not trigger")
	}
	if !g.LastTrigger().IsZero() {
		t.Error("own message must not consume the cooldown")
	}
}

func TestShouldTriggerCooldown(t *testing.T) {
	g := New("awsl", 10*time.Second)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if !g.ShouldTrigger(otherMessage("awsl"), t0) {
		t.Fatal("first qualifying message should trigger")
	}

	if g.ShouldTrigger(otherMessage("awsl again"), t0.Add(5*time.Second)) {
		t.Error("message within cooldown should not trigger")
	}

	if !g.ShouldTrigger(otherMessage("awsl once more"), t0.Add(11*time.Second)) {
		t.Error("message after cooldown expiry should trigger")
	}
}

func TestShouldTriggerUpdatesLastTriggerAtomically(t *testing.T) {
	g := New("awsl", 10*time.Second)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if !g.ShouldTrigger(otherMessage("awsl"), now) {
		t.Fatal("first message should trigger")
	}
	if !g.LastTrigger().Equal(now) {
		t.Errorf("expected last trigger %v, got %v", now, g.LastTrigger())
	}

	// A second qualifying message in the same evaluation pass sees the
	// already-advanced cooldown.
	if g.ShouldTrigger(otherMessage("awsl too"), now) {
		t.Error("second message in the same pass must not also fire")
	}
}

func TestShouldTriggerFailedMatchKeepsCooldownFree(t *testing.T) {
	g := New("awsl", 10*time.Second)
	now := time.Now()

	g.ShouldTrigger(otherMessage("无关内容"), now)
	if !g.LastTrigger().IsZero() {
		t.Error("non-matching message must not consume the cooldown")
	}
}
