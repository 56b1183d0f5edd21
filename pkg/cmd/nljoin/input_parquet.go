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
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/parquet-go/parquet-go"
)

// loadParquet reads a parquet file with a flat schema.
func loadParquet(ctx context.Context, path string, capacity int) (*relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, errors.Mark(err, errBadInput)
	}
	rel := &relation{name: path}
	for _, field := range pf.Schema().Fields() {
		typ, err := parquetFieldType(field)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "column %s", field.Name()), errBadInput)
		}
		rel.names = append(rel.names, field.Name())
		rel.types = append(rel.types, typ)
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()
	builder := newBatchBuilder(rel.types, capacity)
	rows := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			b, idx := builder.row(ctx)
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(rel.types) {
					return nil, errors.Mark(errors.Newf("unexpected column index %d", col), errBadInput)
				}
				coldata.SetValueAt(b.ColVec(col), parquetValue(rel.types[col], v), idx)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	rel.batches, rel.numRows = builder.batches, builder.numRows
	return rel, nil
}

// parquetFieldType maps a leaf parquet column to a type. Date and timestamp
// annotations are kept, other integers become ints of the matching width and
// byte arrays become strings only when annotated as UTF8.
func parquetFieldType(field parquet.Field) (*types.T, error) {
	if !field.Leaf() {
		return nil, errors.New("nested columns are not supported")
	}
	logical := field.Type().LogicalType()
	switch field.Type().Kind() {
	case parquet.Boolean:
		return types.Bool, nil
	case parquet.Int32:
		if logical != nil && logical.Date != nil {
			return types.Date, nil
		}
		return types.Int4, nil
	case parquet.Int64:
		if logical != nil && logical.Timestamp != nil {
			return types.Timestamp, nil
		}
		return types.Int, nil
	case parquet.Float, parquet.Double:
		return types.Float, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if logical != nil && logical.UTF8 != nil {
			return types.String, nil
		}
		return types.Bytes, nil
	}
	return nil, errors.Newf("unsupported parquet type %s", field.Type())
}

// parquetValue converts v into the physical value stored for typ, or nil for
// a null.
func parquetValue(typ *types.T, v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return v.Int32()
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return v.ByteArray()
	}
	panic(errors.AssertionFailedf("unexpected parquet value %s for %s", v.Kind(), typ))
}
