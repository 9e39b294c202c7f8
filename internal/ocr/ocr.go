package ocr

import (
	"context"
	"strings"
)

// Fragment is one recognized text span. Positions are normalized to the
// captured region's width and height, so a fragment at XRatio 0.05 sits at
// the far left of the region regardless of screen resolution.
type Fragment struct {
	Text       string  `json:"text"`
	XRatio     float64 `json:"x_ratio"`
	YRatio     float64 `json:"y_ratio"`
	Confidence float64 `json:"confidence"`
}

type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Fragment, error)
}

// Normalize validates fragments coming off a recognizer: ratios are clamped
// into [0,1], text is trimmed, and empty fragments are dropped. Everything
// downstream can then trust the Fragment shape.
func Normalize(fragments []Fragment) []Fragment {
	out := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		f.Text = strings.TrimSpace(f.Text)
		if f.Text == "" {
			continue
		}
		f.XRatio = clamp01(f.XRatio)
		f.YRatio = clamp01(f.YRatio)
		f.Confidence = clamp01(f.Confidence)
		out = append(out, f)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
