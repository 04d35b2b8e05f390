package image

import "github.com/bilirumine/engine/internal/tensor"

// ExtendOutput is Extend's emitted (scaled, zoomed) pair: Scaled is the
// bicubic-upscaled reference frame carried through unchanged as the
// temporal-interpolation anchor; Zoomed is the outpainted/cropped frame
// Detail refines further.
type ExtendOutput struct {
	Scaled tensor.Payload
	Zoomed tensor.Payload
	Err    error
}

// DetailOutput is Detail's emitted (scaled, decoded) pair.
type DetailOutput struct {
	Scaled  tensor.Payload
	Decoded tensor.Payload
	Err     error
}

// InterpolateOutput is the frame sequence Interpolate hands to Write, with
// the seed frame already dropped.
type InterpolateOutput struct {
	Frames tensor.Payload
	Err    error
}

// WriteOutput is the ring-buffer coordinate and completion metadata Write
// produces for the outer loop to emit as a control-channel completion line.
type WriteOutput struct {
	Offset, Size, Generation int64
	Width, Height, Count     int
	Err                      error
}
