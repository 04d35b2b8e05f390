/*
Package model declares the pure-compute collaborators the image and audio
pipelines delegate to: diffusion sampling, VAE encode/decode, CLIP text
embedding, frame interpolation, and audio generation. These calls are
treated as opaque external inference steps — the core's job is
orchestration, buffering, and the numeric glue around them
(internal/tensor), not the models themselves.

Two implementations are provided: model/local, a deterministic in-process
stand-in useful for tests and for running the pipeline without real model
weights, and model/remote, which proxies every call over HTTP to a sibling
inference process (the Go-native reading of "exposed as pure compute
functions" when the weights don't live in this process).
*/
package model
