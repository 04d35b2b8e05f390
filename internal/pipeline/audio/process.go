package audio

import (
	"context"
	"math"

	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Process implements the audio-pipeline Process stage: a cold
// generate(prompts) call, or a generate_continuation seeded by the prior
// clip's overlap tail.
type Process struct {
	Model model.Model
}

// NewProcess constructs the Process stage.
func NewProcess(m model.Model) *Process {
	return &Process{Model: m}
}

// Steps builds Process's single-step sequence: unlike the image pipeline's
// Extend/Detail, generation here is one opaque model call with no
// intermediate yield points of its own.
func (p *Process) Steps(ctx context.Context, st state.State, prior tensor.Payload, hasPrior bool) scheduler.Step {
	done := false
	return func() (interface{}, bool) {
		if done {
			return ProcessOutput{}, true
		}
		done = true

		rate := st.Rate
		if rate <= 0 {
			rate = DefaultRate
		}

		if hasPrior {
			count := int(math.Ceil(st.Duration * st.Overlap * float64(rate)))
			tail := tensor.TailSamples(prior, count)
			clip, err := p.Model.GenerateContinuation(ctx, tail, rate, st.Prompts)
			return ProcessOutput{Clip: clip, Rate: rate, Err: err}, true
		}

		clip, err := p.Model.Generate(ctx, st.Prompts)
		return ProcessOutput{Clip: clip, Rate: rate, Err: err}, true
	}
}
