package image

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/model/local"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

func runToCompletion(t *testing.T, step func() (interface{}, bool)) interface{} {
	t.Helper()
	for i := 0; i < 64; i++ {
		out, ok := step()
		if ok {
			return out
		}
	}
	t.Fatal("step sequence did not terminate")
	return nil
}

func TestExtendWithoutMarginsPassesThroughUpscaled(t *testing.T) {
	m := local.New()
	cache := clip.NewMemory()
	ext := NewExtend(m, cache)

	input := tensor.SolidColor(8, 8, 0.1, 0.2, 0.3)
	st := state.State{Width: 16, Height: 16}

	step := ext.Steps(context.Background(), st, input)
	out := runToCompletion(t, step).(ExtendOutput)

	require.NoError(t, out.Err)
	require.Equal(t, 16, out.Scaled.H)
	require.Equal(t, 16, out.Zoomed.H)
}

func TestExtendWithMarginsOutpaints(t *testing.T) {
	m := local.New()
	cache := clip.NewMemory()
	ext := NewExtend(m, cache)

	input := tensor.SolidColor(8, 8, 0.1, 0.2, 0.3)
	st := state.State{Width: 8, Height: 8, Left: 2, Top: 2, Right: 2, Bottom: 2, Positive: "a", Negative: "b"}

	step := ext.Steps(context.Background(), st, input)
	out := runToCompletion(t, step).(ExtendOutput)

	require.NoError(t, out.Err)
	require.Equal(t, 8, out.Zoomed.H)
	require.Equal(t, 8, out.Zoomed.W)
}
