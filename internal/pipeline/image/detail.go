package image

import (
	"context"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Detail implements the high-frequency refinement stage.
type Detail struct {
	Model model.Model
	Cache clip.Cache
}

// NewDetail constructs the Detail stage.
func NewDetail(m model.Model, cache clip.Cache) *Detail {
	return &Detail{Model: m, Cache: cache}
}

// Steps builds Detail's step sequence: embed prompts, VAE-encode, sample,
// VAE-decode, each its own scheduler yield point.
func (d *Detail) Steps(ctx context.Context, st state.State, input ExtendOutput) scheduler.Step {
	phase := 0
	var posEmb, negEmb clip.Embedding
	var latent, sampled model.Latent
	var decoded tensor.Payload

	fail := func(err error) (interface{}, bool) {
		phase = -1
		return DetailOutput{Err: err}, true
	}

	return func() (interface{}, bool) {
		switch phase {
		case 0:
			var err error
			posEmb, err = d.Cache.Get(ctx, "detail", st.Positive, func() (clip.Embedding, error) {
				return d.Model.Embed(ctx, st.Positive)
			})
			if err != nil {
				return fail(err)
			}
			negEmb, err = d.Cache.Get(ctx, "detail", st.Negative, func() (clip.Embedding, error) {
				return d.Model.Embed(ctx, st.Negative)
			})
			if err != nil {
				return fail(err)
			}
			phase++
			return nil, false

		case 1:
			var err error
			latent, err = d.Model.Encode(ctx, input.Zoomed)
			if err != nil {
				return fail(err)
			}
			phase++
			return nil, false

		case 2:
			var err error
			sampled, err = d.Model.Sample(ctx, model.SampleRequest{
				Latent:    latent,
				Positive:  posEmb,
				Negative:  negEmb,
				Scheduler: "euler_ancestral/sgm_uniform",
				Steps:     st.Steps,
				Guidance:  st.Guidance,
				Denoise:   st.Denoise,
				Seed:      randomSeed64(),
			})
			if err != nil {
				return fail(err)
			}
			phase++
			return nil, false

		case 3:
			var err error
			decoded, err = d.Model.Decode(ctx, sampled)
			if err != nil {
				return fail(err)
			}
			phase = -1
			return DetailOutput{Scaled: input.Scaled, Decoded: decoded}, true

		default:
			return DetailOutput{}, true
		}
	}
}

// SeedLoader loads a feedback message's seed payload the same way the read
// stage would, so Feedback can decide between a freshly loaded seed and the
// decoded frame it is falling back to.
type SeedLoader func(state.State) (tensor.Payload, bool)

// Feedback resolves the feedback rule: a state.next patch wins
// and is merged over st, falling back to the just-decoded frame if the
// merged state's own seed can't be loaded; a bare loop flag re-feeds st
// unchanged; otherwise there is no feedback edge for this task.
func Feedback(st state.State, decoded tensor.Payload, loadSeed SeedLoader) (state.State, tensor.Payload, bool) {
	if st.Next != nil {
		merged := state.Merge(st, st.Next)
		if seed, ok := loadSeed(merged); ok {
			return merged, seed, true
		}
		return merged, decoded, true
	}
	if st.Loop {
		return st, decoded, true
	}
	return state.State{}, tensor.Payload{}, false
}
