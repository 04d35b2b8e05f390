// Package state defines the control-message record that flows through the
// pipeline and the process-wide scheduling sets (CANCEL, PAUSE) that the read
// stage maintains and every worker consults.
//
// A State is immutable once constructed; forward propagation clones it with
// field overrides (see Merge), matching the "{...state, ...state.next}"
// spread the original control protocol uses.
package state
