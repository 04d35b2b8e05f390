package topology

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/control"
	"github.com/bilirumine/engine/internal/model/local"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/state"
)

func TestImageRunPublishesCompletionForOneRequest(t *testing.T) {
	r, err := ring.Open(filepath.Join(t.TempDir(), "bilirumine_image"), ring.Config{Capacity: 1 << 20, Alignment: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	img := NewImage(ImageDeps{
		Sets:   state.NewSets(),
		Ring:   r,
		Model:  local.New(),
		Cache:  clip.NewMemory(),
		Stdin:  stdinR,
		Stdout: stdoutW,
		Stderr: io.Discard,
	})

	runDone := make(chan error, 1)
	go func() { runDone <- img.Run(context.Background()) }()

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdoutR)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	_, err = stdinW.Write([]byte(`{"version":1,"empty":true,"height":8,"width":8,"positive":"a cat"}` + "\n"))
	require.NoError(t, err)

	select {
	case line := <-lines:
		var completion control.ImageCompletion
		require.NoError(t, sonic.UnmarshalString(line, &completion))
		require.Equal(t, int64(1), completion.Version)
		require.Equal(t, 8, completion.Width)
		require.Equal(t, 8, completion.Height)
		require.Equal(t, "a cat", completion.Description)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for image completion line")
	}

	require.NoError(t, stdinW.Close())
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("image topology did not shut down after stdin EOF")
	}
}
