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
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
)

// errBadInput marks errors caused by malformed input files, as opposed to
// I/O failures.
var errBadInput = errors.New("bad input")

// relation is an input file loaded into batches.
type relation struct {
	name    string
	names   []string
	types   []*types.T
	batches []coldata.Batch
	numRows int
}

// batchBuilder appends rows to a sequence of batches of at most capacity
// rows each.
type batchBuilder struct {
	typs     []*types.T
	capacity int
	batches  []coldata.Batch
	cur      coldata.Batch
	numRows  int
	every    log.EveryN
}

func newBatchBuilder(typs []*types.T, capacity int) *batchBuilder {
	return &batchBuilder{typs: typs, capacity: capacity, every: log.Every(time.Second)}
}

// row returns the batch and the index within it at which the next row must
// be written.
func (b *batchBuilder) row(ctx context.Context) (coldata.Batch, int) {
	if b.cur == nil || b.cur.Length() == b.capacity {
		b.cur = coldata.NewMemBatchWithCapacity(b.typs, b.capacity)
		b.batches = append(b.batches, b.cur)
	}
	idx := b.cur.Length()
	b.cur.SetLength(idx + 1)
	b.numRows++
	if b.every.ShouldLog() {
		log.Infof(ctx, "loaded %d rows", b.numRows)
	}
	return b.cur, idx
}

// side is one input of the join, made of one or more files with the same
// schema.
type side struct {
	names []string
	types []*types.T
	files []*relation
}

// loadSide loads every file in paths and checks that they agree on column
// names and types.
func loadSide(ctx context.Context, paths []string, capacity int) (*side, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}
	s := &side{}
	for _, path := range paths {
		rel, err := loadRelation(ctx, path, capacity)
		if err != nil {
			return nil, err
		}
		if len(s.files) == 0 {
			s.names, s.types = rel.names, rel.types
		} else if !sameSchema(s, rel) {
			return nil, errors.Mark(errors.Newf(
				"%s has schema %s, expected %s as in %s",
				path, formatSchema(rel.names, rel.types), formatSchema(s.names, s.types), s.files[0].name,
			), errBadInput)
		}
		s.files = append(s.files, rel)
	}
	return s, nil
}

func sameSchema(s *side, rel *relation) bool {
	if len(s.names) != len(rel.names) {
		return false
	}
	for i := range s.names {
		if !strings.EqualFold(s.names[i], rel.names[i]) || !s.types[i].Identical(rel.types[i]) {
			return false
		}
	}
	return true
}

func formatSchema(names []string, typs []*types.T) string {
	cols := make([]string, len(names))
	for i := range names {
		cols[i] = names[i] + ":" + typs[i].String()
	}
	return "(" + strings.Join(cols, ", ") + ")"
}

// batches returns the batches of all files in order.
func (s *side) batches() []coldata.Batch {
	var batches []coldata.Batch
	for _, f := range s.files {
		batches = append(batches, f.batches...)
	}
	return batches
}

// operator returns an operator producing the batches of all files in order.
func (s *side) operator() colexecop.Operator {
	if len(s.files) == 1 {
		return colexecop.NewFixedBatchesOp(s.files[0].batches...)
	}
	inputs := make([]colexecop.Operator, len(s.files))
	for i, f := range s.files {
		inputs[i] = colexecop.NewFixedBatchesOp(f.batches...)
	}
	return colexec.NewSerialUnorderedSynchronizer(inputs)
}

// loadRelation reads path, choosing the format by the file extension.
func loadRelation(ctx context.Context, path string, capacity int) (*relation, error) {
	var rel *relation
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		rel, err = loadParquet(ctx, path, capacity)
	default:
		rel, err = loadCSV(ctx, path, capacity)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	log.Infof(ctx, "loaded %d rows in %d batches from %s", rel.numRows, len(rel.batches), path)
	return rel, nil
}

// loadCSV reads a CSV file whose header cells have the form "name:type". A
// header cell without a type declares a string column.
func loadCSV(ctx context.Context, path string, capacity int) (*relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(ctx, path, f, capacity)
}

func readCSV(ctx context.Context, name string, r io.Reader, capacity int) (*relation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.Mark(errors.New("missing header"), errBadInput)
		}
		return nil, err
	}
	rel := &relation{name: name}
	for _, cell := range header {
		colName, typName, ok := strings.Cut(cell, ":")
		typ := types.String
		if ok {
			if typ, err = types.FromName(typName); err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "column %s", colName), errBadInput)
			}
		}
		rel.names = append(rel.names, strings.TrimSpace(colName))
		rel.types = append(rel.types, typ)
	}
	builder := newBatchBuilder(rel.types, capacity)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(err, errBadInput)
		}
		b, idx := builder.row(ctx)
		for i, cell := range record {
			v, err := parseCell(rel.types[i], cell)
			if err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "line %d column %s", line, rel.names[i]), errBadInput)
			}
			coldata.SetValueAt(b.ColVec(i), v, idx)
		}
	}
	rel.batches, rel.numRows = builder.batches, builder.numRows
	return rel, nil
}

const dateFormat = "2006-01-02"

// parseCell converts a CSV cell into the physical value stored for typ. An
// unquoted NULL is a null of any type, and an empty cell is a null of any
// non-string type.
func parseCell(typ *types.T, cell string) (interface{}, error) {
	if cell == "NULL" {
		return nil, nil
	}
	switch typ.Family() {
	case types.StringFamily, types.BytesFamily, types.CollatedStringFamily:
		return cell, nil
	}
	if cell = strings.TrimSpace(cell); cell == "" {
		return nil, nil
	}
	switch typ.Family() {
	case types.BoolFamily:
		return strconv.ParseBool(cell)
	case types.IntFamily:
		width := int(typ.Width())
		if width == 0 {
			width = 64
		}
		v, err := strconv.ParseInt(cell, 10, width)
		if err != nil {
			return nil, err
		}
		return v, nil
	case types.FloatFamily:
		return strconv.ParseFloat(cell, 64)
	case types.DecimalFamily:
		d, _, err := apd.NewFromString(cell)
		if err != nil {
			return nil, err
		}
		return d.Float64()
	case types.DateFamily:
		t, err := time.Parse(dateFormat, cell)
		if err != nil {
			return nil, err
		}
		return int32(t.Unix() / secondsPerDay), nil
	case types.TimestampFamily:
		t, err := time.Parse(time.RFC3339Nano, cell)
		if err != nil {
			return nil, err
		}
		return t.UnixMicro(), nil
	case types.PointerFamily:
		return strconv.ParseUint(cell, 0, 64)
	}
	return nil, errors.Newf("unsupported type %s", typ)
}

const secondsPerDay = 24 * 60 * 60
