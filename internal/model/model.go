package model

import (
	"context"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/tensor"
)

// Latent is an opaque intermediate representation produced by VAE.Encode
// and consumed by Sampler.Sample and VAE.Decode. It is shaped like an image
// tensor.Payload but lives in the model's latent space rather than pixel
// space.
type Latent = tensor.Payload

// SampleRequest carries one diffusion sampling call's parameters.
type SampleRequest struct {
	Latent    Latent
	Positive  clip.Embedding
	Negative  clip.Embedding
	Scheduler string
	Steps     int
	Guidance  float64
	Denoise   float64
	Seed      uint64
}

// Sampler runs the configured diffusion scheduler over a latent.
type Sampler interface {
	Sample(ctx context.Context, req SampleRequest) (Latent, error)
}

// VAE encodes pixel-space frames to the latent space and back.
type VAE interface {
	Encode(ctx context.Context, frame tensor.Payload) (Latent, error)
	Decode(ctx context.Context, latent Latent) (tensor.Payload, error)
}

// TextEncoder embeds a prompt string into CLIP space. Callers normally
// reach this through clip.Cache rather than directly, so repeated prompts
// within a session are computed once.
type TextEncoder interface {
	Embed(ctx context.Context, prompt string) (clip.Embedding, error)
}

// Interpolator runs one cascaded pass of temporal frame interpolation,
// parameterized by a resolution scale and an output frame multiplier.
type Interpolator interface {
	Interpolate(ctx context.Context, frames tensor.Payload, scale float64, multiplier int) (tensor.Payload, error)
}

// AudioGenerator produces audio clips cold or as a continuation of a prior
// clip's tail.
type AudioGenerator interface {
	Generate(ctx context.Context, prompts []string) (tensor.Payload, error)
	GenerateContinuation(ctx context.Context, priorTail tensor.Payload, sampleRate int, prompts []string) (tensor.Payload, error)
}

// Model bundles every model collaborator a pipeline worker needs behind one
// handle, so stage constructors take a single dependency.
type Model interface {
	Sampler
	VAE
	TextEncoder
	Interpolator
	AudioGenerator
}
