// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package colexecerror contains the panic-based error propagation used by
// vectorized operators: operators panic with InternalError or ExpectedError
// and the root of the flow converts the panic back into an error with
// CatchVectorizedRuntimeError.
package colexecerror

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// CatchVectorizedRuntimeError executes operation, catches a runtime error if
// it is coming from the vectorized engine, and returns it. If an error not
// related to the vectorized engine occurs, it is not recovered from.
func CatchVectorizedRuntimeError(operation func()) (retErr error) {
	defer func() {
		panicObj := recover()
		if panicObj == nil {
			// No panic happened, so the operation must have been executed
			// successfully.
			return
		}
		err, ok := panicObj.(error)
		if !ok {
			// Not an error object. Definitely unexpected.
			panic(panicObj)
		}
		var nie *notInternalError
		if errors.As(err, &nie) {
			// A notInternalError was not caused by the vectorized engine and
			// represents an error that we don't want to annotate in case it
			// doesn't have a valid PG code.
			retErr = nie.cause
			return
		}
		var ie *internalError
		if errors.As(err, &ie) {
			retErr = ie.cause
			return
		}
		if errors.HasAssertionFailure(err) {
			retErr = err
			return
		}
		// Not an error raised by the vectorized engine: re-panic.
		panic(panicObj)
	}()
	operation()
	return retErr
}

// internalError is an error that occurs because of a bug in the vectorized
// engine.
type internalError struct {
	cause error
}

func (e *internalError) Error() string { return e.cause.Error() }
func (e *internalError) Cause() error  { return e.cause }
func (e *internalError) Unwrap() error { return e.cause }

// notInternalError is an error that occurs not because of a bug in the
// vectorized engine (e.g. an error that is expected during the execution).
type notInternalError struct {
	cause error
}

func (e *notInternalError) Error() string { return e.cause.Error() }
func (e *notInternalError) Cause() error  { return e.cause }
func (e *notInternalError) Unwrap() error { return e.cause }

// InternalError simply panics with the provided object. It will always be
// caught and returned as internal error to the client with the corresponding
// stack trace. This method should be called to propagate errors that resulted
// in the vectorized engine being in an *unexpected* state.
func InternalError(err error) {
	if !errors.HasAssertionFailure(err) {
		err = errors.NewAssertionErrorWithWrappedErrf(err, "unexpected error from the vectorized engine")
	}
	panic(&internalError{cause: err})
}

// ExpectedError panics with the error that is wrapped by
// notInternalError which will not be treated as internal error and will not
// have a printed out stack trace. This method should be called to propagate
// all *unexpected* errors that originated not in the vectorized engine.
func ExpectedError(err error) {
	panic(&notInternalError{cause: err})
}

// NonCatchablePanic is the same as Go's 'panic' function with the difference
// that the panic will not be caught by CatchVectorizedRuntimeError.
func NonCatchablePanic(object interface{}) {
	panic(fmt.Sprint(object))
}
