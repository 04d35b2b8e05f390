package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Payload is a batch of images (N,H,W,3) or a batch of audio clips (N,1,S),
// float32, normalized to [0,1] for images or to the generator's native
// range for audio. Data is stored flat, row-major, batch-major.
type Payload struct {
	N, H, W, C int
	Data       []float32
}

// NewImage allocates a zeroed (n,h,w,3) image batch.
func NewImage(n, h, w int) Payload {
	return Payload{N: n, H: h, W: w, C: 3, Data: make([]float32, n*h*w*3)}
}

// NewAudio allocates a zeroed (n,1,samples) audio batch.
func NewAudio(n, samples int) Payload {
	return Payload{N: n, H: 1, W: samples, C: 1, Data: make([]float32, n*samples)}
}

// SolidColor builds a single-frame (1,h,w,3) tensor of one constant color,
// the materialization of the read stage's `empty` flag.
func SolidColor(h, w int, r, g, b float32) Payload {
	p := NewImage(1, h, w)
	for i := 0; i < h*w; i++ {
		p.Data[i*3+0] = r
		p.Data[i*3+1] = g
		p.Data[i*3+2] = b
	}
	return p
}

// clamp01 clamps a float32 into [0,1].
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ToU8 converts a normalized [0,1] image tensor to packed u8 RGB bytes,
// clamping before casting (clamp-then-cast and cast-then-clamp are
// equivalent modulo rounding; this implementation always clamps first).
func ToU8(p Payload) []byte {
	out := make([]byte, len(p.Data))
	for i, v := range p.Data {
		out[i] = byte(clamp01(v)*255.0 + 0.5)
	}
	return out
}

// FromU8 decodes packed u8 RGB bytes into a normalized (1,h,w,3) tensor.
func FromU8(data []byte, h, w int) Payload {
	p := NewImage(1, h, w)
	n := h * w * 3
	if len(data) < n {
		n = len(data)
	}
	for i := 0; i < n; i++ {
		p.Data[i] = float32(data[i]) / 255.0
	}
	return p
}

// FeatherEnvelope returns a size-length ramp from 0 to 1, used to blend an
// outpainted border into the preserved interior of a frame. Built with
// gonum's evenly-spaced span rather than a hand-rolled loop.
func FeatherEnvelope(size int) []float32 {
	if size <= 1 {
		return []float32{1}
	}
	span := make([]float64, size)
	floats.Span(span, 0, 1)
	out := make([]float32, size)
	for i, v := range span {
		out[i] = float32(v)
	}
	return out
}

// Crop extracts the rectangle [x0,y0,w,h) from a single-frame image tensor.
func Crop(p Payload, x0, y0, w, h int) Payload {
	out := NewImage(p.N, h, w)
	for n := 0; n < p.N; n++ {
		for y := 0; y < h; y++ {
			srcY := y0 + y
			if srcY < 0 || srcY >= p.H {
				continue
			}
			for x := 0; x < w; x++ {
				srcX := x0 + x
				if srcX < 0 || srcX >= p.W {
					continue
				}
				for c := 0; c < p.C; c++ {
					out.Data[((n*h+y)*w+x)*p.C+c] = p.Data[((n*p.H+srcY)*p.W+srcX)*p.C+c]
				}
			}
		}
	}
	return out
}

// cubicWeight is the Catmull-Rom convolution kernel (a=-0.5), the standard
// bicubic interpolation kernel.
func cubicWeight(x float64) float64 {
	const a = -0.5
	x = math.Abs(x)
	switch {
	case x <= 1:
		return (a+2)*x*x*x - (a+3)*x*x + 1
	case x < 2:
		return a*x*x*x - 5*a*x*x + 8*a*x - 4*a
	default:
		return 0
	}
}

// Resize performs bicubic resampling of a single-frame image tensor to
// (height, width). This runs in-process rather than being delegated to a
// model-inference collaborator.
func Resize(p Payload, height, width int) Payload {
	if p.H == height && p.W == width {
		return p
	}
	out := NewImage(p.N, height, width)
	scaleY := float64(p.H) / float64(height)
	scaleX := float64(p.W) / float64(width)

	for n := 0; n < p.N; n++ {
		for y := 0; y < height; y++ {
			srcY := (float64(y)+0.5)*scaleY - 0.5
			iy := int(math.Floor(srcY))
			for x := 0; x < width; x++ {
				srcX := (float64(x)+0.5)*scaleX - 0.5
				ix := int(math.Floor(srcX))

				for c := 0; c < p.C; c++ {
					var acc, wsum float64
					for dy := -1; dy <= 2; dy++ {
						sy := clampIndex(iy+dy, p.H)
						wy := cubicWeight(srcY - float64(iy+dy))
						for dx := -1; dx <= 2; dx++ {
							sx := clampIndex(ix+dx, p.W)
							wx := cubicWeight(srcX - float64(ix+dx))
							weight := wy * wx
							acc += weight * float64(p.Data[((n*p.H+sy)*p.W+sx)*p.C+c])
							wsum += weight
						}
					}
					if wsum != 0 {
						acc /= wsum
					}
					out.Data[((n*height+y)*width+x)*p.C+c] = clamp01(float32(acc))
				}
			}
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Concat stacks frames along the batch dimension, used by the interpolate
// stage to join seed and generated frames before cascaded passes.
func Concat(frames ...Payload) Payload {
	if len(frames) == 0 {
		return Payload{}
	}
	h, w, c := frames[0].H, frames[0].W, frames[0].C
	total := 0
	for _, f := range frames {
		total += f.N
	}
	out := NewImage(total, h, w)
	out.C = c
	offset := 0
	for _, f := range frames {
		copy(out.Data[offset*h*w*c:], f.Data)
		offset += f.N
	}
	return out
}

// Tail returns the frames of a batch from index `from` onward, i.e.
// frames[from:]; Tail(p, 1) is the drop-seed-frame case.
func Tail(p Payload, from int) Payload {
	if from < 0 {
		from = 0
	}
	if from >= p.N {
		return Payload{N: 0, H: p.H, W: p.W, C: p.C}
	}
	frameLen := p.H * p.W * p.C
	out := Payload{N: p.N - from, H: p.H, W: p.W, C: p.C}
	out.Data = append([]float32(nil), p.Data[from*frameLen:]...)
	return out
}

// TailSamples returns the last `count` audio samples across the batch's
// sample axis, used to build the overlap seed for audio continuation.
func TailSamples(p Payload, count int) Payload {
	if count > p.W {
		count = p.W
	}
	from := p.W - count
	out := NewAudio(p.N, count)
	for n := 0; n < p.N; n++ {
		copy(out.Data[n*count:(n+1)*count], p.Data[n*p.W+from:(n+1)*p.W])
	}
	return out
}
