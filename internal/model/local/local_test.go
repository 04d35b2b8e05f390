package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/tensor"
)

func TestEmbedIsDeterministicAndUnitNorm(t *testing.T) {
	l := New()
	a, err := l.Embed(context.Background(), "a castle at dusk")
	require.NoError(t, err)
	b, err := l.Embed(context.Background(), "a castle at dusk")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var sumSq float64
	for _, v := range a {
		sumSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sumSq, 0.01)
}

func TestSampleAtZeroDenoiseIsUnchanged(t *testing.T) {
	l := New()
	latent := tensor.SolidColor(2, 2, 0.3, 0.3, 0.3)
	out, err := l.Sample(context.Background(), model.SampleRequest{Latent: latent, Denoise: 0, Seed: 42})
	require.NoError(t, err)
	for i := range latent.Data {
		assert.InDelta(t, latent.Data[i], out.Data[i], 1e-6)
	}
}

func TestInterpolateProducesRequestedFrameCount(t *testing.T) {
	l := New()
	frames := tensor.Concat(tensor.SolidColor(4, 4, 0, 0, 0), tensor.SolidColor(4, 4, 1, 1, 1))
	out, err := l.Interpolate(context.Background(), frames, 1.0, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, out.N)
	assert.Equal(t, 4, out.H)
	assert.Equal(t, 4, out.W)
}

func TestGenerateContinuationBlendsPriorTail(t *testing.T) {
	l := New()
	prior := tensor.NewAudio(1, 100)
	for i := range prior.Data {
		prior.Data[i] = 0.5
	}
	out, err := l.GenerateContinuation(context.Background(), prior, 48000, []string{"rain"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Data[0], 0.05, "continuation head should start near the prior tail's value")
}
