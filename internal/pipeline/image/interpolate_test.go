package image

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/model/local"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

func TestInterpolateDropsSeedFrame(t *testing.T) {
	m := local.New()
	interp := NewInterpolate(m, []Pass{{Scale: 0.5, Multiplier: 3}})

	input := DetailOutput{
		Scaled:  tensor.SolidColor(4, 4, 0, 0, 0),
		Decoded: tensor.SolidColor(4, 4, 1, 1, 1),
	}

	step := interp.Steps(context.Background(), state.State{}, input)
	out := runToCompletion(t, step).(InterpolateOutput)

	require.NoError(t, out.Err)
	assert.Equal(t, 2, out.Frames.N, "first pass emits 3 frames, dropping the seed leaves 2")
}

func TestInterpolateDefaultPassesUsedWhenNilGiven(t *testing.T) {
	interp := NewInterpolate(local.New(), nil)
	assert.Len(t, interp.Passes, 2)
}
