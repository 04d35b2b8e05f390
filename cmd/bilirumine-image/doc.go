// Command bilirumine-image runs the image half of the pipeline: it reads
// control lines from stdin, drives the Read/Extend/Detail/Interpolate/Write
// stage topology, publishes frames to the bilirumine_image shared-memory
// ring, and emits completion lines on stdout.
//
// Configuration:
//   - Environment variables, see internal/config
//   - An optional YAML topology-tuning file (-topology flag)
//
// Usage:
//
//	./bilirumine-image -topology ./topology.yaml
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown once the in-flight drain round
//     finishes
package main
