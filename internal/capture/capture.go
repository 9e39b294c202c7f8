package capture

import (
	"context"
	"fmt"
)

// Region selects the part of the target window to capture, expressed as
// ratios of the window's bounds. Values are calibrated per UI layout; the
// defaults in config cover the message area of a standard chat window.
type Region struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func (r Region) Validate() error {
	if r.Left < 0 || r.Left > 1 || r.Top < 0 || r.Top > 1 {
		return fmt.Errorf("region origin out of range: left=%f top=%f", r.Left, r.Top)
	}
	if r.Width <= 0 || r.Height <= 0 || r.Left+r.Width > 1 || r.Top+r.Height > 1 {
		return fmt.Errorf("region extent out of range: width=%f height=%f", r.Width, r.Height)
	}
	return nil
}

type FrameSource interface {
	Capture(ctx context.Context, region Region) ([]byte, error)
}
