package audio

import "github.com/bilirumine/engine/internal/tensor"

// DefaultRate is used when a request omits an explicit sample rate.
const DefaultRate = 32000

// ProcessOutput is Process's generated (or continued) clip.
type ProcessOutput struct {
	Clip tensor.Payload
	Rate int
	Err  error
}

// WriteOutput is the ring coordinate and metadata for the audio completion
// line. Clip is the published payload itself, carried
// alongside the ring coordinate so a topology wiring a self-loop
// (state.Loop) can re-inject it as the next cycle's seed without a round
// trip through the ring it was just written to.
type WriteOutput struct {
	Clip                     tensor.Payload
	Offset, Size, Generation int64
	Samples, Channels, Count int
	Rate                     int
	Err                      error
}
