package image

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/state"
	"github.com/bilirumine/engine/internal/tensor"
)

func TestWritePublishesToRingAndReportsCoordinate(t *testing.T) {
	r, err := ring.Open(filepath.Join(t.TempDir(), "bilirumine_image"), ring.Config{Capacity: 1 << 20, Alignment: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	w := NewWrite(r)
	frames := tensor.SolidColor(4, 4, 1, 1, 1)

	step := w.Steps(state.State{Version: 1}, frames)
	out := runToCompletion(t, step).(WriteOutput)

	require.NoError(t, out.Err)
	require.Equal(t, 4, out.Width)
	require.Equal(t, 4, out.Height)
	require.Equal(t, 1, out.Count)

	data, ok := r.Read(out.Offset, out.Size, out.Generation)
	require.True(t, ok)
	require.Len(t, data, 4*4*3)
}
