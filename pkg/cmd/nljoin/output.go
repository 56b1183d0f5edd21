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
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/olekukonko/tablewriter"
)

// formatValue renders the value at physical index idx of vec for display.
func formatValue(vec coldata.Vec, idx int) string {
	if vec.Nulls().NullAt(idx) {
		return "NULL"
	}
	switch vec.Type().Family() {
	case types.DecimalFamily:
		var d apd.Decimal
		if _, err := d.SetFloat64(vec.Float64()[idx]); err != nil {
			return vec.PrettyValueAt(idx)
		}
		return d.Text('f')
	case types.DateFamily:
		return time.Unix(int64(vec.Int32()[idx])*secondsPerDay, 0).UTC().Format(dateFormat)
	case types.TimestampFamily:
		return time.UnixMicro(vec.Int64()[idx]).UTC().Format(time.RFC3339Nano)
	}
	return vec.PrettyValueAt(idx)
}

func writeResult(w io.Writer, format string, res *joinResult) error {
	switch format {
	case "table":
		return writeTable(w, res)
	case "csv":
		return writeCSV(w, res)
	}
	return errors.Newf("unknown format %q, expected table or csv", format)
}

func writeTable(w io.Writer, res *joinResult) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(res.header)
	for _, row := range res.rows {
		table.Append(row)
	}
	table.Render()
	suffix := "s"
	if len(res.rows) == 1 {
		suffix = ""
	}
	_, err := fmt.Fprintf(w, "(%d row%s)\n", len(res.rows), suffix)
	return err
}

func writeCSV(w io.Writer, res *joinResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.header); err != nil {
		return err
	}
	if err := cw.WriteAll(res.rows); err != nil {
		return err
	}
	return cw.Error()
}
