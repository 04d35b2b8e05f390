package image

import (
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Write implements the final image-pipeline stage: one contiguous ring
// write plus the completion metadata the host needs to memory-map and
// display the frames in order.
type Write struct {
	Ring *ring.Ring
}

// NewWrite constructs the Write stage against the given ring.
func NewWrite(r *ring.Ring) *Write {
	return &Write{Ring: r}
}

// Steps builds Write's single-step sequence: the stage has no intermediate
// yield points of its own, since converting and publishing the frame
// sequence is one coherent action rather than a multi-phase sequence.
func (w *Write) Steps(_ state.State, frames tensor.Payload) scheduler.Step {
	done := false
	return func() (interface{}, bool) {
		if done {
			return WriteOutput{}, true
		}
		done = true

		data := tensor.ToU8(frames)
		offset, size, generation, err := w.Ring.Write(data)
		if err != nil {
			return WriteOutput{Err: err}, true
		}
		return WriteOutput{
			Offset:     offset,
			Size:       size,
			Generation: generation,
			Width:      frames.W,
			Height:     frames.H,
			Count:      frames.N,
		}, true
	}
}
