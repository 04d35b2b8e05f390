// Package tensor defines the Payload type the pipeline passes between
// stages and model collaborators, plus the small amount of numeric
// housekeeping the core performs itself between opaque model calls:
// clamp-then-cast u8<->f32 conversion, edge-feather envelopes, and basic
// vector normalization. The actual diffusion/VAE/interpolation/audio math
// is delegated to internal/model; this package only prepares and converts
// the buffers that cross that boundary.
package tensor
