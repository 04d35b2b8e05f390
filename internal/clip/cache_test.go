package clip

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyDistinguishesStage(t *testing.T) {
	a := Key("extend", "a castle at dusk")
	b := Key("detail", "a castle at dusk")
	require.NotEqual(t, a, b)
}

func TestMemoryCacheComputesOnceOnRepeatedGet(t *testing.T) {
	m := NewMemory()
	calls := 0
	compute := func() (Embedding, error) {
		calls++
		return Embedding{1, 2, 3}, nil
	}

	e1, err := m.Get(context.Background(), "extend", "prompt", compute)
	require.NoError(t, err)
	e2, err := m.Get(context.Background(), "extend", "prompt", compute)
	require.NoError(t, err)

	require.Equal(t, e1, e2)
	require.Equal(t, 1, calls)
}

func TestNewSelectsModeByPath(t *testing.T) {
	mem, err := New("")
	require.NoError(t, err)
	_, ok := mem.(*Memory)
	require.True(t, ok)

	disk, err := New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	_, ok = disk.(*Disk)
	require.True(t, ok)
}

func TestDiskCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	d1, err := NewDisk(dir)
	require.NoError(t, err)
	calls := 0
	compute := func() (Embedding, error) {
		calls++
		return Embedding{0.5, 0.25, -0.25}, nil
	}

	emb1, err := d1.Get(context.Background(), "extend", "a prompt", compute)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	d2, err := NewDisk(dir)
	require.NoError(t, err)
	emb2, err := d2.Get(context.Background(), "extend", "a prompt", compute)
	require.NoError(t, err)

	require.Equal(t, emb1, emb2)
	require.Equal(t, 1, calls, "a fresh instance reading the persisted manifest must not recompute")
}
