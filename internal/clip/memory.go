package clip

import (
	"context"
	"sync"
)

// Memory is the process-wide, single-mutex in-memory cache mode.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Embedding
}

// NewMemory constructs an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Embedding)}
}

// Get returns the cached embedding for (stage, prompt), computing and
// storing it under the cache's single lock on a miss. The lock is held
// across compute to keep the no-eviction, single-writer contract simple;
// the prompt set in one session is small enough that this never becomes a
// bottleneck.
func (m *Memory) Get(_ context.Context, stage, prompt string, compute Compute) (Embedding, error) {
	key := Key(stage, prompt)

	m.mu.Lock()
	defer m.mu.Unlock()

	if emb, ok := m.entries[key]; ok {
		return emb, nil
	}

	emb, err := compute()
	if err != nil {
		return nil, err
	}
	m.entries[key] = emb
	return emb, nil
}
