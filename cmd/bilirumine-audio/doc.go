// Command bilirumine-audio runs the audio half of the pipeline: it reads
// control lines from stdin, drives the Read/Process/Write stage topology,
// publishes clips to the bilirumine_sound shared-memory ring, and emits
// completion lines on stdout.
//
// Configuration:
//   - Environment variables, see internal/config
//
// Usage:
//
//	./bilirumine-audio
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown once the in-flight drain round
//     finishes
package main
