package audio

import (
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Write implements the audio-pipeline Write stage: publishes the
// generated clip to its own ring (bilirumine_sound).
type Write struct {
	Ring *ring.Ring
}

// NewWrite constructs the audio Write stage against the sound ring.
func NewWrite(r *ring.Ring) *Write {
	return &Write{Ring: r}
}

// Steps builds Write's single-step sequence.
func (w *Write) Steps(_ state.State, clip tensor.Payload, rate int) scheduler.Step {
	done := false
	return func() (interface{}, bool) {
		if done {
			return WriteOutput{}, true
		}
		done = true

		data := encodeF32(clip)
		offset, size, generation, err := w.Ring.Write(data)
		if err != nil {
			return WriteOutput{Err: err}, true
		}
		return WriteOutput{
			Clip:       clip,
			Offset:     offset,
			Size:       size,
			Generation: generation,
			Samples:    clip.W,
			Channels:   clip.C,
			Count:      clip.N,
			Rate:       rate,
		}, true
	}
}
