/*
Package control implements the three mutually-exclusive line streams of the
host protocol: one control message per input line, one completion message
per published payload on output, free-form diagnostic lines on error. Each
stream is guarded by its own mutex so writers across stages never interleave
a partial line.

Wire encoding is sonic-based JSON: an input line decodes into a
state.State, an output line encodes a Completion. Free-text fields that
flow from an untrusted host (tags, positive, negative, and the prompts a
description is built from) are run through bluemonday's strict policy before they reach a
log line or a completion message, since they are echoed back verbatim and
this is the one boundary where external text enters the process.
*/
package control
