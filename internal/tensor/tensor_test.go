package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampThenCastRoundTrip(t *testing.T) {
	p := Payload{N: 1, H: 1, W: 2, C: 3, Data: []float32{0, 0.5, 1, -1, 2, 0.999}}
	u8 := ToU8(p)
	assert.Equal(t, byte(0), u8[0])
	assert.Equal(t, byte(128), u8[1])
	assert.Equal(t, byte(255), u8[2])
	assert.Equal(t, byte(0), u8[3], "negative values clamp to 0 before cast")
	assert.Equal(t, byte(255), u8[4], "values above 1 clamp to 1 before cast")
}

func TestFromU8NormalizesToUnitRange(t *testing.T) {
	data := []byte{0, 255, 128}
	p := FromU8(data, 1, 1)
	require.Len(t, p.Data, 3)
	assert.InDelta(t, 0.0, p.Data[0], 1e-6)
	assert.InDelta(t, 1.0, p.Data[1], 1e-6)
}

func TestFeatherEnvelopeMonotone(t *testing.T) {
	env := FeatherEnvelope(8)
	require.Len(t, env, 8)
	assert.Equal(t, float32(0), env[0])
	assert.Equal(t, float32(1), env[len(env)-1])
	for i := 1; i < len(env); i++ {
		assert.GreaterOrEqual(t, env[i], env[i-1])
	}
}

func TestResizePreservesSolidColor(t *testing.T) {
	p := SolidColor(8, 8, 0.2, 0.4, 0.6)
	resized := Resize(p, 16, 16)
	assert.Equal(t, 16, resized.H)
	assert.Equal(t, 16, resized.W)
	// interior pixel of a solid color field should resample back to ~same color
	idx := ((resized.H / 2) * resized.W) * 3
	assert.InDelta(t, 0.2, resized.Data[idx], 0.05)
	assert.InDelta(t, 0.4, resized.Data[idx+1], 0.05)
	assert.InDelta(t, 0.6, resized.Data[idx+2], 0.05)
}

func TestTailDropsSeedFrame(t *testing.T) {
	p := Concat(SolidColor(1, 1, 0, 0, 0), SolidColor(1, 1, 1, 1, 1))
	tail := Tail(p, 1)
	assert.Equal(t, 1, tail.N)
	assert.Equal(t, float32(1), tail.Data[0])
}

func TestTailSamplesWindow(t *testing.T) {
	audio := NewAudio(1, 10)
	for i := range audio.Data {
		audio.Data[i] = float32(i)
	}
	tail := TailSamples(audio, 4)
	assert.Equal(t, 4, tail.W)
	assert.Equal(t, []float32{6, 7, 8, 9}, tail.Data)
}
