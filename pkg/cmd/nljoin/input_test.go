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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

// relationRows formats every row of rel for comparison.
func relationRows(rel *relation) [][]string {
	var rows [][]string
	for _, b := range rel.batches {
		for i := 0; i < b.Length(); i++ {
			row := make([]string, b.Width())
			for j, vec := range b.ColVecs() {
				row[j] = formatValue(vec, i)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func TestReadCSV(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	const input = `id:int2, name, price:decimal, day:date, at:timestamp, ok:bool, h:pointer, raw:bytes, city:string collate de
1,a,1.50,2024-02-29,2024-02-29T10:11:12.5Z,true,0x10,x,München
NULL,NULL,,,,,,,
-3,"",0.1,1969-12-31,1970-01-01T00:00:00Z,false,7,,NULL
`
	rel, err := readCSV(ctx, "input", strings.NewReader(input), 2)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name", "price", "day", "at", "ok", "h", "raw", "city"}, rel.names)
	require.Equal(t, []*types.T{
		types.Int2, types.String, types.Decimal, types.Date, types.Timestamp,
		types.Bool, types.Pointer, types.Bytes, types.MakeCollatedString("de"),
	}, rel.types)
	require.Equal(t, 3, rel.numRows)
	require.Len(t, rel.batches, 2)

	expected := [][]string{
		{"1", "a", "1.5", "2024-02-29", "2024-02-29T10:11:12.5Z", "true", "16", "x", "München"},
		{"NULL", "NULL", "NULL", "NULL", "NULL", "NULL", "NULL", "", ""},
		{"-3", "", "0.1", "1969-12-31", "1970-01-01T00:00:00Z", "false", "7", "", "NULL"},
	}
	if diff := cmp.Diff(expected, relationRows(rel)); diff != "" {
		t.Errorf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestReadCSVErrors(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	testCases := []struct {
		name  string
		input string
		err   string
	}{
		{name: "empty", input: "", err: "missing header"},
		{name: "bad type", input: "a:widget\n1\n", err: "column a"},
		{name: "bad int", input: "a:int\nx\n", err: "line 2 column a"},
		{name: "overflow", input: "a:int2\n70000\n", err: "value out of range"},
		{name: "bad decimal", input: "a:decimal\n1.2.3\n", err: "line 2 column a"},
		{name: "bad date", input: "a:string,b:date\nx,2024-13-01\n", err: "line 2 column b"},
		{name: "ragged", input: "a,b\n1,2\n3\n", err: "wrong number of fields"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := readCSV(ctx, tc.name, strings.NewReader(tc.input), 4)
			require.ErrorContains(t, err, tc.err)
			require.True(t, errors.Is(err, errBadInput), "%+v", err)
		})
	}
}

func TestLoadRelationMissingFile(t *testing.T) {
	defer log.Scope(t).Close(t)
	_, err := loadRelation(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), 4)
	require.ErrorContains(t, err, "missing.csv")
	require.False(t, errors.Is(err, errBadInput))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// scoreRow is written to parquet files in tests. Its fields are declared in
// name order, which is the order of the columns read back.
type scoreRow struct {
	Score float64 `parquet:"score"`
	Tag   string  `parquet:"tag"`
	UID   int64   `parquet:"uid"`
}

func writeParquet(t *testing.T, path string, rows []scoreRow) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	writer := parquet.NewGenericWriter[scoreRow](f)
	_, err = writer.Write(rows)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
}

func TestLoadParquet(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "scores.parquet")
	var rows []scoreRow
	for i := 0; i < 5; i++ {
		rows = append(rows, scoreRow{Score: float64(i) / 2, Tag: strings.Repeat("t", i), UID: int64(i * 10)})
	}
	writeParquet(t, path, rows)

	rel, err := loadRelation(ctx, path, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"score", "tag", "uid"}, rel.names)
	require.Equal(t, []*types.T{types.Float, types.String, types.Int}, rel.types)
	require.Equal(t, 5, rel.numRows)
	require.Len(t, rel.batches, 3)

	expected := [][]string{
		{"0", "", "0"},
		{"0.5", "t", "10"},
		{"1", "tt", "20"},
		{"1.5", "ttt", "30"},
		{"2", "tttt", "40"},
	}
	if diff := cmp.Diff(expected, relationRows(rel)); diff != "" {
		t.Errorf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestSelectNonNullKeys(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	rel, err := readCSV(ctx, "input", strings.NewReader("a:int,b:int\n1,NULL\n2,2\nNULL,3\n4,4\nNULL,NULL\n"), 3)
	require.NoError(t, err)
	require.Len(t, rel.batches, 2)

	batches := selectNonNullKeys(rel.batches, []int{0})
	require.Len(t, batches, 2)
	require.Equal(t, []int{0, 1}, batches[0].Selection()[:batches[0].Length()])
	require.Equal(t, []int{0}, batches[1].Selection()[:batches[1].Length()])

	// Only row 1 of the first batch has both keys.
	batches = selectNonNullKeys(batches, []int{0, 1})
	require.Len(t, batches, 2)
	require.Equal(t, 1, batches[0].Length())
	require.Equal(t, "2", formatValue(batches[0].ColVec(0), coldata.PhysicalIdx(batches[0].Selection(), 0)))
}
