/*
Package local provides a deterministic, in-process stand-in for every
model.Model collaborator. It does no real diffusion, VAE, or RIFE-style
inference — it exists so the pipeline can run end to end (and be tested)
without a GPU or real model weights, producing reproducible output for a
given seed/prompt rather than plausible-looking media.
*/
package local

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/tensor"
)

// EmbeddingDim is the width of the stand-in CLIP embedding.
const EmbeddingDim = 32

// Local implements model.Model with deterministic, seedable transforms.
type Local struct{}

// New constructs the local stand-in model.
func New() *Local { return &Local{} }

// Embed hashes the prompt into a fixed-width, unit-normalized embedding.
// Identical prompts always embed identically, which is all the downstream
// cache and samplers require.
func (l *Local) Embed(_ context.Context, prompt string) (clip.Embedding, error) {
	seed := fnvSeed(prompt)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	emb := make(clip.Embedding, EmbeddingDim)
	var sumSq float64
	for i := range emb {
		v := rng.Float64()*2 - 1
		emb[i] = float32(v)
		sumSq += v * v
	}
	norm := float32(math.Sqrt(sumSq))
	if norm > 0 {
		for i := range emb {
			emb[i] /= norm
		}
	}
	return emb, nil
}

// Encode is the identity transform into latent space: the stand-in has no
// compression to perform, so pixel and latent tensors share a shape.
func (l *Local) Encode(_ context.Context, frame tensor.Payload) (model.Latent, error) {
	out := frame
	out.Data = append([]float32(nil), frame.Data...)
	return out, nil
}

// Decode is Encode's inverse: also identity, clamped back into [0,1].
func (l *Local) Decode(_ context.Context, latent model.Latent) (tensor.Payload, error) {
	out := latent
	out.Data = make([]float32, len(latent.Data))
	for i, v := range latent.Data {
		out.Data[i] = clamp01(v)
	}
	return out, nil
}

// Sample blends the input latent with seeded noise scaled by Denoise,
// standing in for a real diffusion scheduler's iterative refinement: at
// Denoise=0 the latent is unchanged, at Denoise=1 it is fully replaced.
func (l *Local) Sample(_ context.Context, req model.SampleRequest) (model.Latent, error) {
	rng := rand.New(rand.NewPCG(req.Seed, req.Seed^0xff51afd7ed558ccd))

	out := req.Latent
	out.Data = make([]float32, len(req.Latent.Data))
	denoise := float32(req.Denoise)
	promptBias := promptBias(req.Positive, req.Negative)

	for i, v := range req.Latent.Data {
		noise := float32(rng.Float64()*2-1)*0.5 + promptBias
		out.Data[i] = clamp01(v*(1-denoise) + noise*denoise)
	}
	return out, nil
}

// Interpolate linearly blends between the two frames in the input batch
// (expected shape N=2: previous, next) into `multiplier` output frames,
// resampling through the pass's working resolution to mirror a cascaded
// real interpolator's multi-resolution passes.
func (l *Local) Interpolate(_ context.Context, frames tensor.Payload, scale float64, multiplier int) (tensor.Payload, error) {
	if frames.N < 2 || multiplier <= 0 {
		return tensor.Payload{N: 0, H: frames.H, W: frames.W, C: frames.C}, nil
	}

	workH := maxInt(1, int(float64(frames.H)*scale))
	workW := maxInt(1, int(float64(frames.W)*scale))

	frameLen0 := frames.H * frames.W * frames.C
	prev := tensor.Payload{N: 1, H: frames.H, W: frames.W, C: frames.C, Data: frames.Data[:frameLen0]}
	next := tensor.Payload{N: 1, H: frames.H, W: frames.W, C: frames.C, Data: frames.Data[frameLen0 : 2*frameLen0]}

	prevWork := tensor.Resize(prev, workH, workW)
	nextWork := tensor.Resize(next, workH, workW)

	out := tensor.NewImage(multiplier, frames.H, frames.W)
	frameLen := workH * workW * frames.C
	for i := 0; i < multiplier; i++ {
		t := float32(i) / float32(maxInt(1, multiplier-1))
		blended := tensor.Payload{N: 1, H: workH, W: workW, C: frames.C, Data: make([]float32, frameLen)}
		for j := range blended.Data {
			blended.Data[j] = prevWork.Data[j]*(1-t) + nextWork.Data[j]*t
		}
		full := tensor.Resize(blended, frames.H, frames.W)
		copy(out.Data[i*frames.H*frames.W*frames.C:], full.Data)
	}
	return out, nil
}

// Generate produces a deterministic waveform seeded from the prompt set.
func (l *Local) Generate(_ context.Context, prompts []string) (tensor.Payload, error) {
	const samples = 48000
	seed := fnvSeed(joinPrompts(prompts))
	return noiseClip(seed, samples), nil
}

// GenerateContinuation produces a clip whose head is seeded by priorTail's
// last samples blended toward freshly generated content, standing in for a
// real model conditioning its output on audio history.
func (l *Local) GenerateContinuation(_ context.Context, priorTail tensor.Payload, sampleRate int, prompts []string) (tensor.Payload, error) {
	const samples = 48000
	seed := fnvSeed(joinPrompts(prompts)) ^ uint64(sampleRate)
	out := noiseClip(seed, samples)

	overlap := priorTail.W
	if overlap > out.W {
		overlap = out.W
	}
	for i := 0; i < overlap; i++ {
		t := float32(i) / float32(maxInt(1, overlap-1))
		out.Data[i] = priorTail.Data[i]*(1-t) + out.Data[i]*t
	}
	return out, nil
}

func noiseClip(seed uint64, samples int) tensor.Payload {
	rng := rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d))
	out := tensor.NewAudio(1, samples)
	for i := range out.Data {
		out.Data[i] = float32(rng.Float64()*2 - 1)
	}
	return out
}

func promptBias(positive, negative clip.Embedding) float32 {
	var sum float32
	for _, v := range positive {
		sum += v
	}
	for _, v := range negative {
		sum -= v
	}
	n := len(positive) + len(negative)
	if n == 0 {
		return 0
	}
	return sum / float32(n) * 0.1
}

func fnvSeed(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func joinPrompts(prompts []string) string {
	out := ""
	for i, p := range prompts {
		if i > 0 {
			out += "\x1f"
		}
		out += p
	}
	return out
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
