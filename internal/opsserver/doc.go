/*
Package opsserver implements the ambient operator HTTP surface: a
local-only gin server exposing process liveness, Prometheus metrics,
ring/scheduler snapshots, and a gorilla/websocket live event stream for an
attached operator dashboard.

This is never the host control protocol, which stays on stdin/stdout/shm —
it is a separate, read-only introspection surface for whoever operates the
process, trimmed to the handful of routes an operator dashboard needs.
*/
package opsserver
