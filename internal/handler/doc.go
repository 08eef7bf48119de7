// Package handler is the catalog of actions a campaign may perform.
//
// An Action wraps exactly one SUT capability. It declares its inputs and
// the range each numeric input is bounded to, an optional precondition,
// and the ghost update to apply when the SUT call succeeds. The ghost
// update is written independently of the SUT's return value: it encodes
// what the SUT is expected to do, and invariants catch the difference.
//
// Registration happens once, before a campaign starts. A Registry is
// read-only afterwards and is shared by all workers.
package handler
