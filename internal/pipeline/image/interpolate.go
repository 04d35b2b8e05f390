package image

import (
	"context"

	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Pass is one cascaded interpolation pass's parameters.
type Pass struct {
	Scale      float64
	Multiplier int
}

// DefaultPasses is the reference two-pass cascade: a coarse low-resolution
// pass, then a full-resolution pass.
func DefaultPasses() []Pass {
	return []Pass{
		{Scale: 0.25, Multiplier: 6},
		{Scale: 1.0, Multiplier: 12},
	}
}

// Interpolate implements the temporal frame-interpolation stage.
type Interpolate struct {
	Model model.Model
	Passes []Pass
}

// NewInterpolate constructs the Interpolate stage with the given cascade;
// a nil/empty passes list uses DefaultPasses.
func NewInterpolate(m model.Model, passes []Pass) *Interpolate {
	if len(passes) == 0 {
		passes = DefaultPasses()
	}
	return &Interpolate{Model: m, Passes: passes}
}

// Steps builds Interpolate's step sequence: one scheduler yield point per
// cascaded pass, then a final yield that drops the seed frame.
func (p *Interpolate) Steps(ctx context.Context, _ state.State, input DetailOutput) scheduler.Step {
	phase := 0
	current := tensor.Concat(input.Scaled, input.Decoded)

	return func() (interface{}, bool) {
		if phase < len(p.Passes) {
			pass := p.Passes[phase]
			out, err := p.Model.Interpolate(ctx, current, pass.Scale, pass.Multiplier)
			if err != nil {
				phase = -1
				return InterpolateOutput{Err: err}, true
			}
			current = out
			phase++
			return nil, false
		}

		phase = -1
		return InterpolateOutput{Frames: tensor.Tail(current, 1)}, true
	}
}
