package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

// Read implements the audio-pipeline Read stage: parses control,
// and optionally decodes a prior audio clip as an (1,1,samples) waveform.
type Read struct {
	Sets *state.Sets
	Ring *ring.Ring
}

// NewRead constructs the audio Read stage.
func NewRead(sets *state.Sets, r *ring.Ring) *Read {
	return &Read{Sets: sets, Ring: r}
}

// ApplySets resolves cancel/pause/resume, matching the image stage's rule.
func (r *Read) ApplySets(st state.State) {
	r.Sets.Apply(st)
}

// Materialize optionally loads a prior clip. hasPrior is false for a cold
// start, in which case Process calls generate(prompts) instead of
// generate_continuation.
func (r *Read) Materialize(st state.State) (prior tensor.Payload, hasPrior bool, err error) {
	switch {
	case st.Data != "":
		raw, decErr := base64.StdEncoding.DecodeString(st.Data)
		if decErr != nil {
			return tensor.Payload{}, false, fmt.Errorf("audio read: decode data: %w", decErr)
		}
		return decodeF32(raw), true, nil

	case st.Size > 0 && st.Generation > 0:
		raw, ok := r.Ring.Read(st.Offset, st.Size, st.Generation)
		if !ok {
			return tensor.Payload{}, false, fmt.Errorf("audio read: ring miss at offset=%d size=%d generation=%d", st.Offset, st.Size, st.Generation)
		}
		return decodeF32(raw), true, nil

	default:
		return tensor.Payload{}, false, nil
	}
}

func decodeF32(raw []byte) tensor.Payload {
	samples := len(raw) / 4
	out := tensor.NewAudio(1, samples)
	for i := 0; i < samples; i++ {
		out.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func encodeF32(p tensor.Payload) []byte {
	out := make([]byte, 4*len(p.Data))
	for i, v := range p.Data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
