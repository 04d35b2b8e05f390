/*
Package ring implements a generation-tagged shared-memory bump allocator: a
fixed-capacity region memory-mapped over /dev/shm/bilirumine_<name>,
written by exactly one producer at a time and read by any number of
readers holding a previously-returned (offset, size, generation)
coordinate.

# Invariants

  - next ∈ [0, capacity]: the cursor where the next write begins.
  - generation ≥ 1: incremented every time the cursor wraps.
  - A read (offset, size, gen) is safe iff size > 0, offset+size ≤ capacity,
    and either:
      (a) gen == current generation AND offset+size ≤ next at read time, or
      (b) current generation − gen == 1 AND next at read time ≤ offset.
    Any other relationship is a definitive miss — the caller gets (nil, false).

# Locking discipline

Write holds the ring's mutex across the full reserve-then-copy sequence, so
no partially-written region is ever exposed. Read takes the lock only long
enough to snapshot (generation, next), then copies bytes out without holding
it — the invariants above are exactly what make that safe: the snapshotted
window is either already-committed data from the current generation, or the
not-yet-overwritten tail of the previous one.

# Re-attach

Open reuses an existing backing file whose size already matches the
requested capacity instead of truncating it, so a restarted process picks up
a ring a still-running host may hold stale coordinates into (a detail the
original implementation's process-restart path relies on).
*/
package ring
