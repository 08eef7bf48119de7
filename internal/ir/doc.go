// Package ir defines the value model shared by every statefuzz component.
//
// Action arguments, SUT outputs and SUT observation snapshots are all
// IRObject values. The model is deliberately small:
//   - no floats (integers are int64), so values compare exactly
//   - object keys are ordered by UTF-16 code units when serialized
//   - canonical JSON (RFC 8785) is the only encoding used for identity
//
// Sequences and failure reports are content addressed: the same steps
// always hash to the same SequenceID, which is what the determinism checks
// compare across campaign executions.
//
// ir imports nothing internal.
package ir
