package audio

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/model/local"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

func runToCompletion(t *testing.T, step func() (interface{}, bool)) interface{} {
	t.Helper()
	for i := 0; i < 8; i++ {
		out, ok := step()
		if ok {
			return out
		}
	}
	t.Fatal("step sequence did not terminate")
	return nil
}

func newTestRead(t *testing.T) *Read {
	t.Helper()
	r, err := ring.Open(filepath.Join(t.TempDir(), "bilirumine_sound"), ring.Config{Capacity: 1 << 20, Alignment: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return NewRead(state.NewSets(), r)
}

func TestMaterializeNoSourceIsColdStart(t *testing.T) {
	rd := newTestRead(t)
	_, hasPrior, err := rd.Materialize(state.State{})
	require.NoError(t, err)
	require.False(t, hasPrior)
}

func TestMaterializeRingHitIsPrior(t *testing.T) {
	rd := newTestRead(t)
	seed := tensor.NewAudio(1, 8)
	for i := range seed.Data {
		seed.Data[i] = float32(i) / 8
	}
	data := encodeF32(seed)
	offset, size, gen, err := rd.Ring.Write(data)
	require.NoError(t, err)

	prior, hasPrior, err := rd.Materialize(state.State{Offset: offset, Size: size, Generation: gen})
	require.NoError(t, err)
	require.True(t, hasPrior)
	assert.Len(t, prior.Data, 8)
}

func TestProcessColdStartCallsGenerate(t *testing.T) {
	p := NewProcess(local.New())
	step := p.Steps(context.Background(), state.State{Prompts: []string{"rain"}}, tensor.Payload{}, false)
	out := runToCompletion(t, step).(ProcessOutput)
	require.NoError(t, out.Err)
	assert.Greater(t, out.Clip.W, 0)
}

func TestProcessContinuationCallsGenerateContinuation(t *testing.T) {
	p := NewProcess(local.New())
	prior := tensor.NewAudio(1, 100)
	for i := range prior.Data {
		prior.Data[i] = 0.25
	}
	st := state.State{Prompts: []string{"rain"}, Duration: 2, Overlap: 0.5, Rate: 100}
	step := p.Steps(context.Background(), st, prior, true)
	out := runToCompletion(t, step).(ProcessOutput)
	require.NoError(t, out.Err)
	assert.InDelta(t, 0.25, out.Clip.Data[0], 0.05)
}

func TestWritePublishesToSoundRing(t *testing.T) {
	r, err := ring.Open(filepath.Join(t.TempDir(), "bilirumine_sound"), ring.Config{Capacity: 1 << 20, Alignment: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	w := NewWrite(r)
	clip := tensor.NewAudio(1, 16)
	step := w.Steps(state.State{}, clip, 48000)
	out := runToCompletion(t, step).(WriteOutput)

	require.NoError(t, out.Err)
	assert.Equal(t, 16, out.Samples)
	assert.Equal(t, 48000, out.Rate)

	data, ok := r.Read(out.Offset, out.Size, out.Generation)
	require.True(t, ok)
	assert.Len(t, data, 16*4)
}
