/*
Package image implements the five image-pipeline stages: Read, Extend,
Detail, Interpolate, Write. Each stage exposes a Steps method that returns a
scheduler.Step closure implementing that stage's step sequence as an
explicit phase counter — a small state machine advanced one phase per
scheduling turn rather than a lazily-evaluated generator. A phase function
returns (nil, false) for every intermediate step and (output, true) on the
stage's single terminal step.

Stage-local errors are carried in each stage's result type rather than
returned from Step, since the scheduler contract has no error channel: a
dropped task still needs to reach its terminal Some so it leaves the FIFO,
it just carries nothing for the topology layer to forward.
*/
package image
