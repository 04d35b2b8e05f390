package image

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// DefaultJitterFactor is the multiplicative jitter bound used when a stage
// isn't given an explicit override.
const DefaultJitterFactor = 0.25

// Extend implements the outpaint-and-rescale stage.
type Extend struct {
	Model model.Model
	Cache clip.Cache
	// JitterFactor bounds the multiplicative jitter applied to outpaint
	// margins: int(v * (U[0,1)*JitterFactor+1)).
	JitterFactor float64
}

// NewExtend constructs the Extend stage against the given model and CLIP
// cache collaborators, using DefaultJitterFactor.
func NewExtend(m model.Model, cache clip.Cache) *Extend {
	return &Extend{Model: m, Cache: cache, JitterFactor: DefaultJitterFactor}
}

// jitter applies the stage's multiplicative jitter bound:
// int(v * (U[0,1)*JitterFactor+1)).
func (e *Extend) jitter(v int) int {
	if v == 0 {
		return 0
	}
	factor := e.JitterFactor
	if factor == 0 {
		factor = DefaultJitterFactor
	}
	return int(float64(v) * (rand.Float64()*factor + 1))
}

func randomSeed64() uint64 {
	var buf [8]byte
	_, _ = cryptorand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampToRange(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// padWithFeather expands img by the given per-side margins, edge-replicating
// the border and fading it toward neutral gray over a feather band sized
// min(W,H)/4 — standing in for the diffusion pass that would otherwise fill
// the new border with generated content.
func padWithFeather(img tensor.Payload, left, top, right, bottom int) tensor.Payload {
	newW := img.W + left + right
	newH := img.H + top + bottom
	out := tensor.NewImage(1, newH, newW)

	featherSize := maxInt(1, minInt(img.W, img.H)/4)
	feather := tensor.FeatherEnvelope(featherSize)

	for y := 0; y < newH; y++ {
		sy := clampToRange(y-top, img.H)
		for x := 0; x < newW; x++ {
			sx := clampToRange(x-left, img.W)
			dist := minInt(minInt(x, newW-1-x), minInt(y, newH-1-y))
			var weight float32 = 1
			if dist < len(feather) {
				weight = feather[dist]
			}
			for c := 0; c < 3; c++ {
				v := img.Data[(sy*img.W+sx)*3+c]
				out.Data[(y*newW+x)*3+c] = v*weight + 0.5*(1-weight)
			}
		}
	}
	return out
}

// Steps builds the Extend stage's step sequence for one task, advancing
// through jitter/upscale, optional crop, optional outpaint, and optional
// final rescale as separate scheduler yield points.
func (e *Extend) Steps(ctx context.Context, st state.State, input tensor.Payload) scheduler.Step {
	phase := 0
	var scaled, working tensor.Payload
	var left, top, right, bottom, zoom int

	return func() (interface{}, bool) {
		switch phase {
		case 0:
			left, top, right, bottom, zoom = e.jitter(st.Left), e.jitter(st.Top), e.jitter(st.Right), e.jitter(st.Bottom), e.jitter(st.Zoom)
			scaled = tensor.Resize(input, st.Height, st.Width)
			working = scaled
			phase++
			return nil, false

		case 1:
			if zoom > 0 || left > 0 || top > 0 || right > 0 || bottom > 0 {
				x0 := zoom + right
				y0 := zoom + bottom
				w := working.W - 2*zoom - left - right
				h := working.H - 2*zoom - top - bottom
				if w > 0 && h > 0 {
					working = tensor.Crop(working, x0, y0, w, h)
				}
			}
			phase++
			return nil, false

		case 2:
			if left > 0 || top > 0 || right > 0 || bottom > 0 {
				padded := padWithFeather(working, left, top, right, bottom)

				posEmb, err := e.Cache.Get(ctx, "extend", st.Positive, func() (clip.Embedding, error) {
					return e.Model.Embed(ctx, st.Positive)
				})
				if err != nil {
					phase = -1
					return ExtendOutput{Err: err}, true
				}
				negEmb, err := e.Cache.Get(ctx, "extend", st.Negative, func() (clip.Embedding, error) {
					return e.Model.Embed(ctx, st.Negative)
				})
				if err != nil {
					phase = -1
					return ExtendOutput{Err: err}, true
				}

				latent, err := e.Model.Encode(ctx, padded)
				if err != nil {
					phase = -1
					return ExtendOutput{Err: err}, true
				}

				sampled, err := e.Model.Sample(ctx, model.SampleRequest{
					Latent:    latent,
					Positive:  posEmb,
					Negative:  negEmb,
					Scheduler: "lcm/sgm_uniform",
					Steps:     5,
					Guidance:  1.0,
					Denoise:   1.0,
					Seed:      randomSeed64(),
				})
				if err != nil {
					phase = -1
					return ExtendOutput{Err: err}, true
				}

				decoded, err := e.Model.Decode(ctx, sampled)
				if err != nil {
					phase = -1
					return ExtendOutput{Err: err}, true
				}
				working = decoded
			}
			phase++
			return nil, false

		case 3:
			if zoom > 0 {
				working = tensor.Resize(working, st.Height, st.Width)
			}
			phase = -1
			return ExtendOutput{Scaled: scaled, Zoomed: working}, true

		default:
			return ExtendOutput{}, true
		}
	}
}
