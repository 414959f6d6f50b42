package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/bankxatm/console"
)

func TestCounterFrames(t *testing.T) {
	counter := console.Counter{Step: decimal.NewFromInt(10)}

	t.Run("counts up in steps and ends on the target", func(tt *testing.T) {
		as := assert.New(tt)
		frames := counter.Frames(decimal.NewFromInt(100))
		as.Len(frames, 10)
		as.True(decimal.NewFromInt(10).Equal(frames[0]))
		as.True(decimal.NewFromInt(100).Equal(frames[9]))
	})

	t.Run("last step is clipped to the target", func(tt *testing.T) {
		as := assert.New(tt)
		target := decimal.RequireFromString("105.25")
		frames := counter.Frames(target)
		as.Len(frames, 11)
		as.True(target.Equal(frames[len(frames)-1]))
		for i := 1; i < len(frames); i++ {
			as.True(frames[i].GreaterThan(frames[i-1]))
		}
	})

	t.Run("large balances are capped in frame count", func(tt *testing.T) {
		as := assert.New(tt)
		target := decimal.NewFromInt(1_000_000)
		frames := counter.Frames(target)
		as.Len(frames, 100)
		as.True(target.Equal(frames[len(frames)-1]))
	})

	t.Run("zero shows a single frame", func(tt *testing.T) {
		frames := counter.Frames(decimal.Zero)
		require.Len(tt, frames, 1)
		assert.True(tt, frames[0].IsZero())
	})

	t.Run("zero step still terminates", func(tt *testing.T) {
		frames := console.Counter{}.Frames(decimal.NewFromInt(50))
		as := assert.New(tt)
		as.Len(frames, 100)
		as.True(decimal.NewFromInt(50).Equal(frames[len(frames)-1]))
	})
}

func TestCounterPlay(t *testing.T) {
	format := func(d decimal.Decimal) string { return "Balance: " + d.StringFixed(2) }

	t.Run("redraws one line and finishes with a newline", func(tt *testing.T) {
		as := assert.New(tt)
		buf := new(bytes.Buffer)
		counter := console.Counter{Step: decimal.NewFromInt(25)}
		err := counter.Play(context.Background(), buf, decimal.NewFromInt(100), format)
		as.NoError(err)
		as.Equal("\rBalance: 25.00\rBalance: 50.00\rBalance: 75.00\rBalance: 100.00\n", buf.String())
	})

	t.Run("stops when the context is cancelled", func(tt *testing.T) {
		as := assert.New(tt)
		buf := new(bytes.Buffer)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		counter := console.Counter{Step: decimal.NewFromInt(1), Interval: time.Hour}
		err := counter.Play(ctx, buf, decimal.NewFromInt(100), format)
		as.ErrorIs(err, context.Canceled)
		as.Equal(1, strings.Count(buf.String(), "\r"))
	})
}
