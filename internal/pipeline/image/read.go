package image

import (
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Read implements the image-pipeline Read stage: the only stage that talks
// to stdin and to the shared CANCEL/PAUSE sets.
type Read struct {
	Sets *state.Sets
	Ring *ring.Ring
}

// NewRead constructs the Read stage against the shared scheduling sets and
// the image ring (used for ring-sourced seed payloads).
func NewRead(sets *state.Sets, r *ring.Ring) *Read {
	return &Read{Sets: sets, Ring: r}
}

// ApplySets resolves one incoming state's cancel/pause/resume fields
// against the shared sets, before any materialization.
func (r *Read) ApplySets(st state.State) {
	r.Sets.Apply(st)
}

// Materialize builds the seed payload for one control message. The bool
// return is false when the message should be dropped without forwarding
// downstream — an explicit skip, or none of the seed sources are
// present.
func (r *Read) Materialize(st state.State) (tensor.Payload, bool, error) {
	if st.Skip {
		return tensor.Payload{}, false, nil
	}

	switch {
	case st.Data != "":
		raw, err := base64.StdEncoding.DecodeString(st.Data)
		if err != nil {
			return tensor.Payload{}, false, fmt.Errorf("image read: decode data: %w", err)
		}
		h, w := shapeOf(st)
		return tensor.FromU8(raw, h, w), true, nil

	case st.Size > 0 && st.Generation > 0:
		raw, ok := r.Ring.Read(st.Offset, st.Size, st.Generation)
		if !ok {
			return tensor.Payload{}, false, fmt.Errorf("image read: ring miss at offset=%d size=%d generation=%d", st.Offset, st.Size, st.Generation)
		}
		h, w := shapeOf(st)
		return tensor.FromU8(raw, h, w), true, nil

	case st.Load != "":
		payload, err := loadImageFile(st.Load)
		if err != nil {
			return tensor.Payload{}, false, fmt.Errorf("image read: load %s: %w", st.Load, err)
		}
		return payload, true, nil

	case st.Empty:
		return tensor.SolidColor(st.Height, st.Width, 0.5, 0.5, 0.5), true, nil

	default:
		return tensor.Payload{}, false, nil
	}
}

func shapeOf(st state.State) (h, w int) {
	if st.Shape != nil {
		return st.Shape.Height, st.Shape.Width
	}
	return st.Height, st.Width
}

// loadImageFile sniffs and decodes an on-disk image into a normalized
// tensor.Payload.
func loadImageFile(path string) (tensor.Payload, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return tensor.Payload{}, fmt.Errorf("sniff mimetype: %w", err)
	}
	if mtype.Is("application/octet-stream") {
		return tensor.Payload{}, fmt.Errorf("unrecognized image type for %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return tensor.Payload{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return tensor.Payload{}, fmt.Errorf("decode image: %w", err)
	}
	return payloadFromImage(img), nil
}

func payloadFromImage(img image.Image) tensor.Payload {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	out := tensor.NewImage(1, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := (y*w + x) * 3
			out.Data[idx+0] = float32(r) / 65535.0
			out.Data[idx+1] = float32(g) / 65535.0
			out.Data[idx+2] = float32(b) / 65535.0
		}
	}
	return out
}
