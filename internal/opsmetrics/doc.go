// Package opsmetrics exposes Prometheus gauges and counters for the ring,
// scheduler, and CLIP cache: one Metrics struct built once at bootstrap
// with promauto, threaded into every component that wants to record
// something, and served over HTTP by internal/opsserver's /metrics route.
//
// This is purely an ambient operator surface — it never carries control
// messages or payload bytes, so it has no bearing on the host protocol,
// which stays on stdin/stdout/shm.
package opsmetrics
