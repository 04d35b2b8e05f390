/*
Package scheduler implements a cooperative, single-goroutine-per-worker
task scheduler: a FIFO of in-flight step generators, advanced one step per
drain-round entry, consulting the shared CANCEL/PAUSE version sets between
steps.

# Loop shape

Each call to Run performs, forever:

 1. Ingest one fresh task from the upstream channel. If the pending FIFO is
    non-empty the pull uses a short timeout (Wait, default 100ms) so the
    drain round below still gets to run; if the FIFO is empty the pull
    blocks, since there is nothing else to do.
 2. Drain round: snapshot the FIFO length K and process exactly K tasks,
    so a task re-enqueued (paused, or a None step) this round is only seen
    again next round. This is what keeps ingest from starving under a
    backlog of paused or slow-stepping tasks.

A task whose version is in CANCEL is dropped silently. A task whose version
is in PAUSE is re-enqueued untouched. Otherwise the task's Step is invoked
once: a None result (ok=false) re-enqueues the task for its next turn; a
Some result (ok=true) is published downstream and the task is not
re-enqueued — terminal-on-Some.
*/
package scheduler
