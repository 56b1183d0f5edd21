// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colexecerror_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/stretchr/testify/require"
)

func TestCatchVectorizedRuntimeError(t *testing.T) {
	expected := errors.New("expected")
	err := colexecerror.CatchVectorizedRuntimeError(func() {
		colexecerror.ExpectedError(expected)
	})
	require.True(t, errors.Is(err, expected))
	require.False(t, errors.HasAssertionFailure(err))

	err = colexecerror.CatchVectorizedRuntimeError(func() {
		colexecerror.InternalError(errors.New("boom"))
	})
	require.True(t, errors.HasAssertionFailure(err))
	require.Contains(t, err.Error(), "boom")

	require.NoError(t, colexecerror.CatchVectorizedRuntimeError(func() {}))

	require.Panics(t, func() {
		_ = colexecerror.CatchVectorizedRuntimeError(func() {
			colexecerror.NonCatchablePanic("not caught")
		})
	})
	require.Panics(t, func() {
		_ = colexecerror.CatchVectorizedRuntimeError(func() {
			panic(errors.New("runtime error outside of the engine"))
		})
	})
}
