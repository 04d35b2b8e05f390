// Package logging wires go.uber.org/zap for the pipeline binaries: a thin
// Logger wrapper, a Config{Level, Development, OutputPaths} struct, JSON
// encoding in production and console encoding in development.
//
// ResolveOutputPaths' opsLogPath parameter, when set, routes the operational
// logger to that file instead of the process's real stderr, so pipeline diagnostics
// never interleave with the control channel's protocol stderr lines —
// those stay on internal/control.Writer, a completely separate io.Writer.
package logging
