// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/spf13/pflag"
)

// parsedCondition is a join condition as written on the command line, with
// column names not yet resolved.
type parsedCondition struct {
	op                treecmp.ComparisonOperatorSymbol
	leftCol, rightCol string
	original          string
}

// conditionsFlag collects the --on flags. Every value has the form
// "l.<col> <op> r.<col>"; the operands may also be swapped, in which case
// the operator is commuted.
type conditionsFlag []parsedCondition

var _ pflag.Value = (*conditionsFlag)(nil)

func (f *conditionsFlag) String() string {
	conds := make([]string, len(*f))
	for i, pc := range *f {
		conds[i] = pc.original
	}
	return "[" + strings.Join(conds, ", ") + "]"
}

func (f *conditionsFlag) Type() string {
	return "condition"
}

func (f *conditionsFlag) Set(s string) error {
	pc, err := parseCondition(s)
	if err != nil {
		return err
	}
	*f = append(*f, pc)
	return nil
}

func parseCondition(s string) (parsedCondition, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return parsedCondition{}, errors.Newf("expected <operand> <op> <operand>, got %q", s)
	}
	op, err := treecmp.ParseComparisonOperator(strings.ToUpper(strings.Join(fields[1:len(fields)-1], " ")))
	if err != nil {
		return parsedCondition{}, err
	}
	firstSide, firstCol, err := parseOperand(fields[0])
	if err != nil {
		return parsedCondition{}, err
	}
	secondSide, secondCol, err := parseOperand(fields[len(fields)-1])
	if err != nil {
		return parsedCondition{}, err
	}
	pc := parsedCondition{op: op, original: s}
	switch {
	case firstSide == "l" && secondSide == "r":
		pc.leftCol, pc.rightCol = firstCol, secondCol
	case firstSide == "r" && secondSide == "l":
		commuted, ok := op.Commute()
		if !ok {
			return parsedCondition{}, errors.Newf("operator %s can't have its operands swapped in %q", op, s)
		}
		pc.op, pc.leftCol, pc.rightCol = commuted, secondCol, firstCol
	default:
		return parsedCondition{}, errors.Newf("condition %q must compare a left column with a right column", s)
	}
	return pc, nil
}

// parseOperand splits "l.name" into its side and column name.
func parseOperand(s string) (side, col string, _ error) {
	side, col, ok := strings.Cut(s, ".")
	side = strings.ToLower(side)
	if !ok || col == "" || (side != "l" && side != "r") {
		return "", "", errors.Newf("operand %q must be of the form l.<column> or r.<column>", s)
	}
	return side, col, nil
}

// resolveConditions maps the column names of parsed to ordinals of the left
// and right inputs.
func resolveConditions(
	parsed []parsedCondition, leftNames, rightNames []string,
) (colexecjoin.JoinConditions, error) {
	if len(parsed) == 0 {
		return nil, errors.New("at least one --on condition is required")
	}
	conds := make(colexecjoin.JoinConditions, len(parsed))
	for i, pc := range parsed {
		leftIdx, err := columnIndex(leftNames, pc.leftCol)
		if err != nil {
			return nil, errors.Wrapf(err, "left input")
		}
		rightIdx, err := columnIndex(rightNames, pc.rightCol)
		if err != nil {
			return nil, errors.Wrapf(err, "right input")
		}
		conds[i] = colexecjoin.JoinCondition{Op: pc.op, LeftColIdx: leftIdx, RightColIdx: rightIdx}
	}
	return conds, nil
}

func columnIndex(names []string, name string) (int, error) {
	for i := range names {
		if strings.EqualFold(names[i], name) {
			return i, nil
		}
	}
	return 0, errors.Newf("no column named %q", name)
}
