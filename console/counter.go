package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

const maxFrames = 100

// Counter animates a balance counting up from zero. It only ever sees a value
// copy of the balance.
type Counter struct {
	Step     decimal.Decimal
	Interval time.Duration
}

// Frames returns the displayed values, ending at target. The step grows for
// large targets so that no more than maxFrames frames are produced.
func (c Counter) Frames(target decimal.Decimal) []decimal.Decimal {
	if !target.IsPositive() {
		return []decimal.Decimal{target}
	}
	step := c.Step
	if floor := target.Div(decimal.NewFromInt(maxFrames)); step.LessThan(floor) {
		step = floor
	}
	if !step.IsPositive() {
		return []decimal.Decimal{target}
	}

	var frames []decimal.Decimal
	shown := decimal.Zero
	for shown.LessThan(target) {
		shown = shown.Add(decimal.Min(step, target.Sub(shown)))
		frames = append(frames, shown)
	}
	return frames
}

// Play writes each frame to w, redrawing one line, and ends with a newline.
func (c Counter) Play(ctx context.Context, w io.Writer, target decimal.Decimal, format func(decimal.Decimal) string) error {
	var tick <-chan time.Time
	if c.Interval > 0 {
		ticker := time.NewTicker(c.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i, f := range c.Frames(target) {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		if _, err := fmt.Fprintf(w, "\r%s", format(f)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
