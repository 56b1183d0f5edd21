// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package treecmp defines the comparison operators that can appear in join
// conditions.
package treecmp

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// ComparisonOperatorSymbol represents a comparison operator symbol.
type ComparisonOperatorSymbol uint8

// ComparisonExpr.Operator.
const (
	EQ ComparisonOperatorSymbol = iota
	LT
	GT
	LE
	GE
	NE
	In
	NotIn
	Like
	NotLike
	IsDistinctFrom
	IsNotDistinctFrom

	NumComparisonOperatorSymbols
)

var _ = NumComparisonOperatorSymbols

var comparisonOpName = [...]string{
	EQ:                "=",
	LT:                "<",
	GT:                ">",
	LE:                "<=",
	GE:                ">=",
	NE:                "!=",
	In:                "IN",
	NotIn:             "NOT IN",
	Like:              "LIKE",
	NotLike:           "NOT LIKE",
	IsDistinctFrom:    "IS DISTINCT FROM",
	IsNotDistinctFrom: "IS NOT DISTINCT FROM",
}

func (i ComparisonOperatorSymbol) String() string {
	if i > ComparisonOperatorSymbol(len(comparisonOpName)-1) {
		return fmt.Sprintf("ComparisonOp(%d)", i)
	}
	return comparisonOpName[i]
}

// SafeValue implements redact.SafeValue.
func (ComparisonOperatorSymbol) SafeValue() {}

var _ redact.SafeValue = EQ

// IsCanonical returns whether the operator is one of the six operators that
// compare two scalar values: =, !=, <, >, <= and >=.
func (i ComparisonOperatorSymbol) IsCanonical() bool {
	switch i {
	case EQ, NE, LT, GT, LE, GE:
		return true
	}
	return false
}

// Commute returns the operator that yields the same result when the two
// operands are swapped, e.g. a < b is equivalent to b > a. ok is false for
// operators that do not commute.
func (i ComparisonOperatorSymbol) Commute() (_ ComparisonOperatorSymbol, ok bool) {
	switch i {
	case EQ, NE, IsDistinctFrom, IsNotDistinctFrom:
		return i, true
	case LT:
		return GT, true
	case GT:
		return LT, true
	case LE:
		return GE, true
	case GE:
		return LE, true
	}
	return 0, false
}

// ParseComparisonOperator returns the operator with the given symbol. Both
// "!=" and "<>" denote NE.
func ParseComparisonOperator(s string) (ComparisonOperatorSymbol, error) {
	if s == "<>" {
		return NE, nil
	}
	for i, name := range comparisonOpName {
		if name == s {
			return ComparisonOperatorSymbol(i), nil
		}
	}
	return 0, errors.Newf("unknown comparison operator %q", s)
}
