/*
Package clip implements a CLIP text-embedding cache keyed by
(stage, hash(prompt)), with two modes chosen once per process by the
configured cache path (config.ClipConfig.CachePath, CLIP_CACHE_PATH); the
`state.cache` control field does not select the mode.

An empty cache path selects the in-memory mode: a single process-wide map
guarded by one mutex, with no eviction (the set of distinct prompts in one
session is small enough that it never needs one). A non-empty path selects
the disk-backed mode: embeddings are zstd-compressed and written under that
directory, indexed by a manifest.toml mapping content hash to filename, with
a rate limiter bounding how fast new entries can be written so a burst of
distinct prompts doesn't thrash storage.
*/
package clip
