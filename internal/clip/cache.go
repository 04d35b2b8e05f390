package clip

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Embedding is a CLIP text embedding vector.
type Embedding []float32

// Compute produces a fresh embedding on a cache miss.
type Compute func() (Embedding, error)

// Cache resolves (stage, prompt) to an Embedding, computing and storing it
// on first use.
type Cache interface {
	Get(ctx context.Context, stage, prompt string, compute Compute) (Embedding, error)
}

// Key hashes (stage, prompt) with blake2b into the cache's content address.
// Stage is folded into the hash rather than used as a directory prefix, so
// two stages never share an accidental collision on a bare prompt hash.
func Key(stage, prompt string) string {
	h, _ := blake2b.New256(nil)
	_, _ = h.Write([]byte(stage))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// New selects the in-memory cache for an empty path, or a disk-backed cache
// rooted at path otherwise, matching the state.cache control field's dual
// meaning.
func New(path string) (Cache, error) {
	if path == "" {
		return NewMemory(), nil
	}
	return NewDisk(path)
}
