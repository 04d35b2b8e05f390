/*
Package topology constructs the worker queues and goroutines that connect
the pipeline stages, and carries the feedback coupling: the detail stage
sends its merged state and decoded frame on a dedicated feedback channel,
and a goroutine on the read side drains that channel and submits each entry
directly to the extend queue. Feedback entries do not pass through the read
stage's set application or materialization, and control-message overrides
that arrive in between are not merged into them.

Image topology:

	stdin -> Read -> A -> Extend -> B -> Detail -> C -> Interpolate -> D -> Write -> stdout + shm
	                                  \- (feedback) -> Read

Audio topology is the three-stage degenerate case, with its own self-loop:
when state.Loop is set, Write re-injects its own output as the next Process
input directly, bypassing Read/stdin entirely.

Every edge gets its own buffered Go channel (edgeBuffer, 64; the feedback
channel uses feedbackBuffer, 8), and a stage's inputs travel in
scheduler.Task.Inputs; the unbounded buffer is each scheduler's FIFO. Bootstrap spawns
one goroutine per stage, each running a scheduler.Scheduler instance around
that stage's Steps closures, and Run joins every stage's lifetime via
context cancellation plus a WaitGroup.
*/
package topology
