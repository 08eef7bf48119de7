// Package sut defines the contract between the fuzzing engine and the
// system under test.
//
// The engine never looks inside a SUT. It constructs a fresh instance per
// attempt through a Factory, mutates it with Call, and reads it with
// Observe. Instances that hold resources implement io.Closer and are
// closed when the attempt ends.
package sut

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ir"
)

// SUT is one live instance of the system under test.
type SUT interface {
	// Call performs action on behalf of caller. A non-nil error is a
	// SUT-level failure (a revert); the engine records it and moves on.
	Call(ctx context.Context, caller actor.Actor, action string, args ir.IRObject) (ir.IRObject, error)

	// Observe returns a read-only snapshot of the state invariants need.
	// Callers must not mutate the returned object.
	Observe() ir.IRObject
}

// Factory constructs independent SUT instances. Two instances returned by
// the same factory must not share mutable state.
type Factory interface {
	New(ctx context.Context) (SUT, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (SUT, error)

// New implements Factory.
func (f FactoryFunc) New(ctx context.Context) (SUT, error) {
	return f(ctx)
}

// Close closes s if it implements io.Closer.
func Close(s SUT) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RevertError is the conventional error a SUT returns when it refuses a
// call. Any error is treated as a revert; this type just carries a
// stable reason string.
type RevertError struct {
	Reason string
}

// Error implements the error interface.
func (e *RevertError) Error() string {
	return e.Reason
}

// Revertf builds a RevertError.
func Revertf(format string, args ...any) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// IsRevert reports whether err is (or wraps) a RevertError.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}
