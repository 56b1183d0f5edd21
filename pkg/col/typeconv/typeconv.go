// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package typeconv

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
)

// DatumVecCanonicalTypeFamily is the "canonical" type family of all types
// that the vectorized engine cannot represent physically.
const DatumVecCanonicalTypeFamily = types.UnknownFamily

// TypeFamilyToCanonicalTypeFamily maps all type families that are supported by
// the vectorized engine to their "canonical" counterparts. "Canonical" type
// families are representatives from a set of "equivalent" type families where
// "equivalence" means having the same physical representation. Unsupported
// families map to DatumVecCanonicalTypeFamily.
func TypeFamilyToCanonicalTypeFamily(family types.Family) types.Family {
	switch family {
	case types.BoolFamily:
		return types.BoolFamily
	case types.IntFamily, types.DateFamily, types.TimestampFamily:
		return types.IntFamily
	case types.FloatFamily, types.DecimalFamily:
		return types.FloatFamily
	case types.PointerFamily:
		return types.PointerFamily
	case types.StringFamily, types.BytesFamily, types.CollatedStringFamily:
		return types.BytesFamily
	default:
		return DatumVecCanonicalTypeFamily
	}
}

// PhysicalWidth returns the width in bits of the physical representation of
// t for the fixed-width kinds and 0 for the variable-length one. Dates are
// stored as 32-bit and timestamps as 64-bit integers.
func PhysicalWidth(t *types.T) int32 {
	switch t.Family() {
	case types.BoolFamily:
		return 8
	case types.IntFamily:
		if t.Width() == 0 {
			return 64
		}
		return t.Width()
	case types.DateFamily:
		return 32
	case types.TimestampFamily, types.FloatFamily, types.DecimalFamily, types.PointerFamily:
		return 64
	}
	return 0
}

// SamePhysicalType returns whether values of the two types share the same
// physical representation.
func SamePhysicalType(a, b *types.T) bool {
	return TypeFamilyToCanonicalTypeFamily(a.Family()) == TypeFamilyToCanonicalTypeFamily(b.Family()) &&
		PhysicalWidth(a) == PhysicalWidth(b)
}

// IsTypeSupported returns whether t is supported by the vectorized engine.
func IsTypeSupported(t *types.T) bool {
	switch t.Family() {
	case types.IntFamily:
		switch t.Width() {
		case 0, 8, 16, 32, 64:
			return true
		}
		panic(fmt.Sprintf("integer with unknown width %d", t.Width()))
	}
	return TypeFamilyToCanonicalTypeFamily(t.Family()) != DatumVecCanonicalTypeFamily
}

// AreTypesSupported checks whether all types in typs are supported by the
// vectorized engine and returns an error if they are not.
func AreTypesSupported(typs []*types.T) error {
	for i := range typs {
		if !IsTypeSupported(typs[i]) {
			return errors.Newf("unsupported type %s", typs[i])
		}
	}
	return nil
}
