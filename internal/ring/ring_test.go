package ring

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestRing(t *testing.T, capacity int64) *Ring {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bilirumine_test")
	r, err := Open(path, Config{Capacity: capacity, HeadPad: 0, Alignment: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestWriteMonotonicWithinGeneration(t *testing.T) {
	r := openTestRing(t, 4096)

	var lastOffset int64 = -1
	for i := 0; i < 5; i++ {
		off, size, gen, err := r.Write(bytes.Repeat([]byte{byte(i)}, 64))
		require.NoError(t, err)
		require.Equal(t, int64(1), gen)
		require.GreaterOrEqual(t, off, lastOffset)
		require.Greater(t, size, int64(0))
		lastOffset = off
	}
}

func TestWriteThenImmediateReadExact(t *testing.T) {
	r := openTestRing(t, 4096)

	payload := []byte("hello ring buffer")
	off, size, gen, err := r.Write(payload)
	require.NoError(t, err)

	got, ok := r.Read(off, size, gen)
	require.True(t, ok)
	require.Equal(t, payload, got[:len(payload)])
}

func TestEmptyWriteReturnsSentinel(t *testing.T) {
	r := openTestRing(t, 4096)
	off, size, gen, err := r.Write(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), off)
	require.Equal(t, int64(0), size)
	require.Equal(t, int64(0), gen)
}

func TestWrapIncrementsGeneration(t *testing.T) {
	r := openTestRing(t, 256)

	// Fill most of the ring in generation 1.
	_, _, gen1, err := r.Write(bytes.Repeat([]byte{1}, 200))
	require.NoError(t, err)
	require.Equal(t, int64(1), gen1)

	// This write cannot fit before capacity, so it must wrap.
	off, _, gen2, err := r.Write(bytes.Repeat([]byte{2}, 100))
	require.NoError(t, err)
	require.Equal(t, int64(2), gen2)
	require.Equal(t, int64(0), off)
}

func TestStaleReadAfterTwoWrapsIsMiss(t *testing.T) {
	r := openTestRing(t, 128)

	off, size, gen, err := r.Write(bytes.Repeat([]byte{1}, 100))
	require.NoError(t, err)

	// Force two wraps.
	_, _, _, err = r.Write(bytes.Repeat([]byte{2}, 100))
	require.NoError(t, err)
	_, _, _, err = r.Write(bytes.Repeat([]byte{3}, 100))
	require.NoError(t, err)

	_, ok := r.Read(off, size, gen)
	require.False(t, ok, "a read two generations behind current must miss")
}

func TestTooLargePayloadRejected(t *testing.T) {
	r := openTestRing(t, 64)
	_, _, _, err := r.Write(bytes.Repeat([]byte{1}, 1000))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestReattachReusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bilirumine_reattach")

	r1, err := Open(path, Config{Capacity: 4096, Alignment: 8})
	require.NoError(t, err)
	_, _, _, err = r1.Write([]byte("first process"))
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := Open(path, Config{Capacity: 4096, Alignment: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r2.Close() })

	cap2, _, _, _ := r2.Snapshot()
	require.Equal(t, int64(4096), cap2)
}
