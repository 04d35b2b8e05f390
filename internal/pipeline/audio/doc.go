/*
Package audio implements the three audio-pipeline stages: Read,
Process, Write — the degenerate three-stage case of the image pipeline's
five, since audio has no separate extend/detail split.
*/
package audio
