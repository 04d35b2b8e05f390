package clip

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/time/rate"
)

const manifestName = "manifest.toml"

// manifestFile is the on-disk shape of manifest.toml: content hash to the
// zstd-compressed embedding file holding it.
type manifestFile struct {
	Entries map[string]string `toml:"entries"`
}

// Disk is the disk-backed cache mode: zstd-compressed embeddings under dir,
// indexed by manifest.toml, with writes rate-limited so a burst of distinct
// prompts doesn't thrash storage.
type Disk struct {
	mu       sync.Mutex
	dir      string
	manifest manifestFile
	limiter  *rate.Limiter
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewDisk opens (creating if necessary) a disk-backed cache rooted at dir,
// warm-scanning for embedding files the manifest doesn't yet know about.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("clip: create cache dir: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("clip: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("clip: new zstd decoder: %w", err)
	}

	d := &Disk{
		dir:      dir,
		manifest: manifestFile{Entries: make(map[string]string)},
		limiter:  rate.NewLimiter(rate.Limit(20), 5),
		enc:      enc,
		dec:      dec,
	}

	if err := d.loadManifest(); err != nil {
		return nil, err
	}
	if err := d.warmScan(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Disk) loadManifest() error {
	path := filepath.Join(d.dir, manifestName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clip: read manifest: %w", err)
	}
	if err := toml.Unmarshal(data, &d.manifest); err != nil {
		return fmt.Errorf("clip: parse manifest: %w", err)
	}
	if d.manifest.Entries == nil {
		d.manifest.Entries = make(map[string]string)
	}
	return nil
}

// warmScan recursively walks the cache directory for compressed embedding
// files the loaded manifest doesn't reference, folding them in. This lets a
// cache directory survive a lost or truncated manifest.toml.
func (d *Disk) warmScan() error {
	known := make(map[string]struct{}, len(d.manifest.Entries))
	for _, name := range d.manifest.Entries {
		known[name] = struct{}{}
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, d.dir, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(d.dir, path)
		if relErr != nil {
			return nil
		}
		match, matchErr := doublestar.Match("*.bin.zst", rel)
		if matchErr != nil || !match {
			return nil
		}
		if _, ok := known[rel]; ok {
			return nil
		}
		hash := rel[:len(rel)-len(".bin.zst")]
		d.manifest.Entries[hash] = rel
		return nil
	})
}

func (d *Disk) persistManifest() error {
	data, err := toml.Marshal(d.manifest)
	if err != nil {
		return fmt.Errorf("clip: marshal manifest: %w", err)
	}
	path := filepath.Join(d.dir, manifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("clip: write manifest: %w", err)
	}
	return nil
}

func encodeEmbedding(emb Embedding) []byte {
	out := make([]byte, 4*len(emb))
	for i, v := range emb {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func decodeEmbedding(data []byte) Embedding {
	out := make(Embedding, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// Get returns the cached embedding for (stage, prompt). On a miss it
// computes, rate-limits, compresses, and persists the new entry before
// returning it.
func (d *Disk) Get(ctx context.Context, stage, prompt string, compute Compute) (Embedding, error) {
	key := Key(stage, prompt)

	d.mu.Lock()
	name, hit := d.manifest.Entries[key]
	d.mu.Unlock()

	if hit {
		compressed, err := os.ReadFile(filepath.Join(d.dir, name))
		if err == nil {
			raw, decErr := d.dec.DecodeAll(compressed, nil)
			if decErr == nil {
				return decodeEmbedding(raw), nil
			}
		}
		// Fall through to recompute on any read/decode failure; a corrupt
		// cache entry should not be a hard error for the caller.
	}

	emb, err := compute()
	if err != nil {
		return nil, err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return emb, nil
	}

	name = key + ".bin.zst"
	compressed := d.enc.EncodeAll(encodeEmbedding(emb), nil)
	if err := os.WriteFile(filepath.Join(d.dir, name), compressed, 0o644); err != nil {
		return emb, nil
	}

	d.mu.Lock()
	d.manifest.Entries[key] = name
	persistErr := d.persistManifest()
	d.mu.Unlock()
	if persistErr != nil {
		return emb, nil
	}

	return emb, nil
}
