package ring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultCapacity is the ring's default size: 2^31 - 1 bytes.
const DefaultCapacity int64 = 1<<31 - 1

// DefaultAlignment is the default write padding alignment in bytes.
const DefaultAlignment int64 = 8

// DefaultHeadPad reserves a small no-man's-land at offset 0 of a new
// generation so that a (offset=0, size=0) coordinate never collides with
// live data.
const DefaultHeadPad int64 = 64

// ErrTooLarge is returned when a single write can never fit in the ring.
var ErrTooLarge = errors.New("ring: payload larger than capacity")

// Ring is a fixed-capacity, generation-tagged bump allocator over a
// memory-mapped file.
type Ring struct {
	mu sync.Mutex

	path      string
	capacity  int64
	headPad   int64
	alignment int64

	file *os.File
	data []byte

	next       int64
	generation int64
}

// Config parameterizes ring construction.
type Config struct {
	Capacity  int64
	HeadPad   int64
	Alignment int64
}

// DefaultConfig returns the spec's literal constants.
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity, HeadPad: DefaultHeadPad, Alignment: DefaultAlignment}
}

// Open maps (creating if necessary) the ring backing file at path. If a file
// already exists there with exactly the requested capacity, it is reused
// as-is (re-attach); otherwise it is (re)truncated and its cursor reset.
func Open(path string, cfg Config) (*Ring, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Alignment <= 0 {
		cfg.Alignment = DefaultAlignment
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ring: create parent dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ring: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("ring: stat %s: %w", path, err)
	}

	reattached := info.Size() == cfg.Capacity
	if !reattached {
		if err := file.Truncate(cfg.Capacity); err != nil {
			file.Close()
			return nil, fmt.Errorf("ring: truncate %s: %w", path, err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(cfg.Capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("ring: mmap %s: %w", path, err)
	}

	r := &Ring{
		path:      path,
		capacity:  cfg.Capacity,
		headPad:   cfg.HeadPad,
		alignment: cfg.Alignment,
		file:      file,
		data:      data,
		next:      cfg.HeadPad,
		generation: 1,
	}
	if reattached {
		// Re-attach picks up at the head pad of a fresh generation rather
		// than replaying the previous process's cursor, since that cursor
		// was never durably persisted alongside the bytes.
		r.next = cfg.HeadPad
		r.generation = 1
	}
	return r, nil
}

func align(v, alignment int64) int64 {
	if alignment <= 1 {
		return v
	}
	rem := v % alignment
	if rem == 0 {
		return v
	}
	return v + (alignment - rem)
}

// Write reserves a contiguous region at the cursor, wrapping (and bumping
// the generation) if the payload would overrun capacity. It returns the
// coordinate under the same critical section that performed the copy, so
// no intermediate state is ever observable by a reader.
//
// An empty payload is a no-op that returns the sentinel (0,0,0); a payload
// that could never fit (larger than capacity minus head pad) returns the
// same sentinel alongside ErrTooLarge.
func (r *Ring) Write(payload []byte) (offset, size, generation int64, err error) {
	if len(payload) == 0 {
		return 0, 0, 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(payload))
	if n > r.capacity-r.headPad {
		return 0, 0, 0, ErrTooLarge
	}

	if r.next+n > r.capacity {
		r.generation++
		r.next = r.headPad
	}

	off := r.next
	copy(r.data[off:off+n], payload)
	r.next = align(off+n, r.alignment)
	if r.next > r.capacity {
		r.next = r.capacity
	}

	return off, n, r.generation, nil
}

// Read validates the read-window invariant against a snapshot of the
// ring's cursor and returns a copy of the referenced bytes, or (nil, false)
// on any invariant violation (a "definitive miss").
func (r *Ring) Read(offset, size, generation int64) ([]byte, bool) {
	if size <= 0 || offset < 0 || offset+size > r.capacity || generation < 1 {
		return nil, false
	}

	r.mu.Lock()
	curGen := r.generation
	nextAtRead := r.next
	r.mu.Unlock()

	switch {
	case generation == curGen && offset+size <= nextAtRead:
		// committed window of the current generation
	case curGen-generation == 1 && nextAtRead <= offset:
		// not-yet-overwritten tail of the previous generation
	default:
		return nil, false
	}

	out := make([]byte, size)
	copy(out, r.data[offset:offset+size])
	return out, true
}

// Snapshot reports the ring's current cursor state for the ops surface.
func (r *Ring) Snapshot() (capacity, next, generation, headPad int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity, r.next, r.generation, r.headPad
}

// Close unmaps the ring and closes its backing file descriptor. The backing
// file itself is left in place — the ring's lifecycle is process start to
// process end, but /dev/shm persistence across that boundary is what lets a
// restarted process re-attach (see Open).
func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			errs = append(errs, fmt.Errorf("ring: munmap: %w", err))
		}
		r.data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ring: close file: %w", err))
		}
		r.file = nil
	}
	return errors.Join(errs...)
}

// Path returns the backing file path, e.g. "/dev/shm/bilirumine_image".
func (r *Ring) Path() string { return r.path }
