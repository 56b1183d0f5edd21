// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package types describes the logical SQL types understood by the
// vectorized join engine. A logical type is mapped onto a physical storage
// kind by the typeconv package.
package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Family is the logical type family of a T.
type Family int32

const (
	// UnknownFamily is the family of the zero T.
	UnknownFamily Family = iota
	// BoolFamily is the family of boolean true/false values.
	BoolFamily
	// IntFamily is the family of signed integers of width 8, 16, 32 or 64.
	IntFamily
	// FloatFamily is the family of 64-bit floating point numbers.
	FloatFamily
	// DecimalFamily is the family of numeric values. The engine represents
	// them with the float physical kind.
	DecimalFamily
	// DateFamily is the family of dates, stored as days since the epoch.
	DateFamily
	// TimestampFamily is the family of timestamps, stored as microseconds
	// since the epoch.
	TimestampFamily
	// PointerFamily is the family of pointer- and hash-like unsigned 64-bit
	// values.
	PointerFamily
	// StringFamily is the family of UTF-8 strings.
	StringFamily
	// BytesFamily is the family of arbitrary byte strings.
	BytesFamily
	// CollatedStringFamily is the family of strings compared under a locale
	// specific collation.
	CollatedStringFamily
	// IntervalFamily is the family of durations. Not supported by the
	// vectorized join engine.
	IntervalFamily
	// JsonFamily is the family of JSON documents. Not supported by the
	// vectorized join engine.
	JsonFamily
)

var familyNames = [...]string{
	UnknownFamily:        "unknown",
	BoolFamily:           "bool",
	IntFamily:            "int",
	FloatFamily:          "float",
	DecimalFamily:        "decimal",
	DateFamily:           "date",
	TimestampFamily:      "timestamp",
	PointerFamily:        "pointer",
	StringFamily:         "string",
	BytesFamily:          "bytes",
	CollatedStringFamily: "collatedstring",
	IntervalFamily:       "interval",
	JsonFamily:           "jsonb",
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return fmt.Sprintf("Family(%d)", int32(f))
	}
	return familyNames[f]
}

// SafeValue implements redact.SafeValue.
func (Family) SafeValue() {}

var _ redact.SafeValue = UnknownFamily

// T is a logical type: a family, a width for families that have several
// physical widths, and a locale for collated strings.
type T struct {
	family Family
	width  int32
	locale string
}

var (
	// Unknown is the type of a value whose type is not known.
	Unknown = &T{family: UnknownFamily}
	// Bool is the type of a boolean true/false value.
	Bool = &T{family: BoolFamily}
	// Int1 is a one-byte integer (TINYINT).
	Int1 = &T{family: IntFamily, width: 8}
	// Int2 is a two-byte integer (SMALLINT).
	Int2 = &T{family: IntFamily, width: 16}
	// Int4 is a four-byte integer (INTEGER).
	Int4 = &T{family: IntFamily, width: 32}
	// Int is an eight-byte integer (BIGINT).
	Int = &T{family: IntFamily, width: 64}
	// Float is a 64-bit floating point number.
	Float = &T{family: FloatFamily, width: 64}
	// Decimal is a numeric value.
	Decimal = &T{family: DecimalFamily}
	// Date is a calendar date.
	Date = &T{family: DateFamily}
	// Timestamp is a point in time without a time zone.
	Timestamp = &T{family: TimestampFamily}
	// Pointer is an unsigned 64-bit pointer or hash value.
	Pointer = &T{family: PointerFamily, width: 64}
	// String is a UTF-8 string compared byte-wise.
	String = &T{family: StringFamily}
	// Bytes is an arbitrary byte string.
	Bytes = &T{family: BytesFamily}
	// Interval is a duration.
	Interval = &T{family: IntervalFamily}
	// Jsonb is a JSON document.
	Jsonb = &T{family: JsonFamily}
)

// MakeCollatedString returns a string type compared under the named
// collation.
func MakeCollatedString(locale string) *T {
	return &T{family: CollatedStringFamily, locale: locale}
}

// MakeScalar returns a T for the given family and width; it is meant for
// tests and for deserialization.
func MakeScalar(family Family, width int32) *T {
	return &T{family: family, width: width}
}

// Family returns the logical family of the type.
func (t *T) Family() Family { return t.family }

// Width returns the width in bits of integer and float types, and 0 for the
// other families.
func (t *T) Width() int32 { return t.width }

// Locale returns the collation of a collated string type.
func (t *T) Locale() string { return t.locale }

// Identical returns whether the two types are the same in every respect.
func (t *T) Identical(other *T) bool {
	return t.family == other.family && t.width == other.width && t.locale == other.locale
}

// SQLString returns the type name as it would appear in a SQL statement.
func (t *T) SQLString() string {
	switch t.family {
	case IntFamily:
		switch t.width {
		case 8:
			return "TINYINT"
		case 16:
			return "INT2"
		case 32:
			return "INT4"
		}
		return "INT8"
	case FloatFamily:
		return "FLOAT8"
	case CollatedStringFamily:
		return fmt.Sprintf("STRING COLLATE %s", t.locale)
	}
	return strings.ToUpper(t.family.String())
}

// String implements fmt.Stringer.
func (t *T) String() string {
	return redact.StringWithoutMarkers(t)
}

// SafeFormat implements redact.SafeFormatter. Type names never contain user
// data.
func (t *T) SafeFormat(w redact.SafePrinter, _ rune) {
	switch t.family {
	case IntFamily:
		if t.width != 64 {
			w.Printf("int%d", redact.SafeInt(t.width/8))
			return
		}
		w.SafeString("int")
	case CollatedStringFamily:
		w.Printf("string collate %s", redact.SafeString(t.locale))
	default:
		w.Print(t.family)
	}
}

var _ redact.SafeFormatter = (*T)(nil)

// FromName parses a type name such as "int4", "decimal" or
// "string collate de" into a T.
func FromName(name string) (*T, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if fields := strings.Fields(n); len(fields) == 3 && fields[1] == "collate" &&
		(fields[0] == "string" || fields[0] == "text" || fields[0] == "varchar") {
		return MakeCollatedString(fields[2]), nil
	}
	switch n {
	case "bool", "boolean":
		return Bool, nil
	case "int1", "tinyint":
		return Int1, nil
	case "int2", "smallint":
		return Int2, nil
	case "int4", "integer":
		return Int4, nil
	case "int", "int8", "bigint":
		return Int, nil
	case "float", "float8", "double":
		return Float, nil
	case "decimal", "numeric":
		return Decimal, nil
	case "date":
		return Date, nil
	case "timestamp":
		return Timestamp, nil
	case "pointer", "hash":
		return Pointer, nil
	case "string", "text", "varchar":
		return String, nil
	case "bytes", "bytea", "blob":
		return Bytes, nil
	case "interval":
		return Interval, nil
	case "jsonb", "json":
		return Jsonb, nil
	}
	return nil, errors.Newf("unknown type name %q", name)
}
