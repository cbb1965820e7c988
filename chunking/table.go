// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunking

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docindex/core"
)

// Column types reported in the header summary.
const (
	ColumnInteger = "integer"
	ColumnFloat   = "float"
	ColumnBoolean = "boolean"
	ColumnText    = "text"
)

// missingValues are cell values treated as absent.
var missingValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

// IsMissing reports whether a cell value counts as missing.
func IsMissing(value string) bool {
	return missingValues[strings.TrimSpace(value)]
}

func (c *Chunker) chunkTable(doc *core.Document) ([]core.Chunk, error) {
	table := doc.Table
	if len(table.Columns) == 0 || len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", core.ErrEmptyDocument, doc.Source)
	}

	chunks := []core.Chunk{{
		Content:    strings.TrimSpace(renderHeader(doc)),
		Provenance: core.TabularHeader{Columns: len(table.Columns)},
	}}

	batchSize := c.opts.RowsPerBatch
	for start := 0; start < len(table.Rows); start += batchSize {
		end := min(start+batchSize, len(table.Rows))
		text, rowOffsets := renderRows(doc.Source, table, start, end)

		if utf8.RuneCountInString(text) <= c.opts.tabularLimit() {
			chunks = append(chunks, core.Chunk{
				Content:    strings.TrimSpace(text),
				Provenance: core.TabularRows{FirstRow: start + 1, LastRow: end},
			})
			continue
		}

		for part, span := range c.rows.Split(text) {
			chunks = append(chunks, core.Chunk{
				Content: span.Text,
				Provenance: core.TabularRows{
					FirstRow: start + 1 + rowAt(rowOffsets, span.Start),
					LastRow:  start + 1 + rowAt(rowOffsets, span.End-1),
					Part:     part,
				},
			})
		}
	}
	return chunks, nil
}

// renderHeader summarizes a table's name, columns and inferred column types.
func renderHeader(doc *core.Document) string {
	table := doc.Table
	var b strings.Builder
	fmt.Fprintf(&b, "%s File: %s\n", fileLabel(doc.Format), doc.Source)
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(table.Columns, ", "))
	b.WriteString("Column Details:\n")
	for i, col := range table.Columns {
		fmt.Fprintf(&b, "- %s: %s\n", col, InferColumnType(table.Rows, i))
	}
	return b.String()
}

func fileLabel(format string) string {
	if format == "" {
		return "Table"
	}
	return strings.ToUpper(format)
}

// renderRows renders rows [start, end) as line-per-field text and returns the
// byte offset at which each row begins.
func renderRows(source string, table *core.Table, start, end int) (string, []int) {
	var b strings.Builder
	fmt.Fprintf(&b, "Rows %d to %d from %s:\n\n", start+1, end, source)

	offsets := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "Row %d:\n", i+1)
		row := table.Rows[i]
		for j, col := range table.Columns {
			if j >= len(row) || IsMissing(row[j]) {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", col, row[j])
		}
		b.WriteString("\n")
	}
	return b.String(), offsets
}

// rowAt returns the 0-based position within the batch of the row containing offset.
// Offsets before the first row belong to it.
func rowAt(offsets []int, offset int) int {
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > offset })
	return max(i-1, 0)
}

// InferColumnType classifies column col by its non-missing values.
func InferColumnType(rows [][]string, col int) string {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, row := range rows {
		if col >= len(row) || IsMissing(row[col]) {
			continue
		}
		value := strings.TrimSpace(row[col])
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(value) {
			case "true", "false":
			default:
				isBool = false
			}
		}
	}

	switch {
	case !seen:
		return ColumnText
	case isInt:
		return ColumnInteger
	case isFloat:
		return ColumnFloat
	case isBool:
		return ColumnBoolean
	}
	return ColumnText
}
