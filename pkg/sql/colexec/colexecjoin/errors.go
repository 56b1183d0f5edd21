// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colexecjoin

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
)

// UnsupportedTypeError is returned when a join condition references columns
// of a type that has no comparison implementation in the nested loop join.
type UnsupportedTypeError struct {
	Type *types.T
}

var _ error = &UnsupportedTypeError{}
var _ fmt.Formatter = &UnsupportedTypeError{}
var _ errors.SafeFormatter = &UnsupportedTypeError{}

func (e *UnsupportedTypeError) Error() string { return fmt.Sprint(e) }

// Format is part of the fmt.Formatter interface.
func (e *UnsupportedTypeError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

// SafeFormatError is part of the errors.SafeFormatter interface. Type names
// are not user data and stay unredacted.
func (e *UnsupportedTypeError) SafeFormatError(p errors.Printer) (next error) {
	p.Printf("unsupported type %s for nested loop join", e.Type)
	return nil
}

// UnsupportedOperatorError is returned when a join condition uses an
// operator other than =, !=, <, >, <= and >=.
type UnsupportedOperatorError struct {
	Op treecmp.ComparisonOperatorSymbol
}

var _ error = &UnsupportedOperatorError{}
var _ fmt.Formatter = &UnsupportedOperatorError{}
var _ errors.SafeFormatter = &UnsupportedOperatorError{}

func (e *UnsupportedOperatorError) Error() string { return fmt.Sprint(e) }

// Format is part of the fmt.Formatter interface.
func (e *UnsupportedOperatorError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

// SafeFormatError is part of the errors.SafeFormatter interface.
func (e *UnsupportedOperatorError) SafeFormatError(p errors.Printer) (next error) {
	p.Printf("unsupported comparison operator %s for nested loop join", e.Op)
	return nil
}
