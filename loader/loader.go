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


package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docindex/core"
	"github.com/tmc/langchaingo/documentloaders"
)

// LoadFile reads the file at path and decodes it. The document source is the
// file's base name.
func LoadFile(ctx context.Context, path string) (*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Load(ctx, filepath.Base(path), data)
}

// Load decodes data according to the format implied by name.
func Load(ctx context.Context, name string, data []byte) (*core.Document, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	doc := &core.Document{Source: name, Format: string(format)}
	switch format {
	case FormatPDF:
		doc.Pages, err = loadPDF(ctx, data)
	case FormatCSV:
		doc.Table, err = loadDelimited(name, data, ',')
	case FormatTSV:
		doc.Table, err = loadDelimited(name, data, '\t')
	default:
		doc.Pages, err = loadText(ctx, name, data)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func loadPDF(ctx context.Context, data []byte) (pages []core.Page, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: malformed pdf: %v", core.ErrDecoding, r)
		}
	}()

	docs, err := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data))).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDecoding, err)
	}

	pages = make([]core.Page, 0, len(docs))
	for i, d := range docs {
		number := i + 1
		if n, ok := d.Metadata["page"].(int); ok {
			number = n
		}
		pages = append(pages, core.Page{Number: number, Text: d.PageContent})
	}
	return pages, nil
}

func loadText(ctx context.Context, name string, data []byte) ([]core.Page, error) {
	for _, dec := range fallbackDecoders {
		text, err := dec.decode(data)
		if err != nil {
			continue
		}
		docs, err := documentloaders.NewText(strings.NewReader(text)).Load(ctx)
		if err != nil {
			continue
		}
		slog.Debug("decoded text document", "source", name, "encoding", dec.name)
		pages := make([]core.Page, 0, len(docs))
		for _, d := range docs {
			pages = append(pages, core.Page{Text: d.PageContent})
		}
		return pages, nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrDecoding, name)
}

func loadDelimited(name string, data []byte, comma rune) (*core.Table, error) {
	var lastErr error
	for _, dec := range fallbackDecoders {
		text, err := dec.decode(data)
		if err != nil {
			lastErr = err
			continue
		}
		table, err := parseDelimited(text, comma)
		if err != nil {
			lastErr = err
			continue
		}
		slog.Debug("decoded delimited document", "source", name, "encoding", dec.name,
			"rows", len(table.Rows))
		if len(table.Columns) == 0 || len(table.Rows) == 0 {
			return nil, fmt.Errorf("%w: %s has no data rows", core.ErrEmptyDocument, name)
		}
		return table, nil
	}
	return nil, fmt.Errorf("%w: %s: %w", core.ErrDecoding, name, lastErr)
}

// parseDelimited reads a header line followed by data rows. Rows shorter than
// the header are padded with empty cells; fully blank rows are dropped.
func parseDelimited(text string, comma rune) (*core.Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &core.Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &core.Table{Columns: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", len(table.Rows)+2, len(record), len(header))
		}
		if blankRecord(record) {
			continue
		}
		row := make([]string, len(header))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
