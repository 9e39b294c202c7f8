package gate

import (
	"strings"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/classify"
)

// Gate decides whether a classified message fires a response. It owns the
// cooldown clock: the last-trigger time advances inside ShouldTrigger so
// that at most one message can fire per evaluation pass. Cooldown state is
// in-memory only and resets on restart.
type Gate struct {
	keyword     string
	cooldown    time.Duration
	lastTrigger time.Time
}

func New(keyword string, cooldown time.Duration) *Gate {
	// The keyword goes through the same normalization as message text so a
	// configured keyword with mixed case or extra whitespace matches its
	// normalized rendering.
	return &Gate{
		keyword:  classify.NormalizeText(keyword),
		cooldown: cooldown,
	}
}

// ShouldTrigger reports whether msg should fire a response at now. Own
// messages never fire regardless of keyword; the bot's replies can echo back
// through capture, and acting on them would loop.
func (g *Gate) ShouldTrigger(msg classify.Message, now time.Time) bool {
	if msg.Origin != classify.OriginOther {
		return false
	}

	if !strings.Contains(classify.NormalizeText(msg.Text), g.keyword) {
		return false
	}

	if !g.lastTrigger.IsZero() && now.Sub(g.lastTrigger) < g.cooldown {
		return false
	}

	g.lastTrigger = now
	return true
}

// LastTrigger returns the time of the most recent fire, zero if none yet.
func (g *Gate) LastTrigger() time.Time {
	return g.lastTrigger
}
