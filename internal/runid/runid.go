/*
Package runid provides ULID-based, type-safe identifiers for pipeline runs
and scheduled tasks.
*/
package runid

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunPrefix and TaskPrefix mark each identifier's kind for readability in
// logs.
const (
	RunPrefix  = "run"
	TaskPrefix = "task"
)

// RunID identifies one pipeline invocation (a process lifetime).
type RunID string

// TaskID identifies one scheduled task within a run.
type TaskID string

func (id RunID) String() string  { return string(id) }
func (id TaskID) String() string { return string(id) }

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator seeded from a cryptographically secure
// entropy source.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

func (g *Generator) generateWithPrefix(prefix string) string {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	u := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return fmt.Sprintf("%s_%s", prefix, u.String())
}

// NewRunID generates a new run identifier.
func NewRunID() RunID {
	return RunID(Default().generateWithPrefix(RunPrefix))
}

// NewTaskID generates a new task identifier.
func NewTaskID() TaskID {
	return TaskID(Default().generateWithPrefix(TaskPrefix))
}
