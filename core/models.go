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


package core

import (
	"encoding/hex"
	"slices"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored records.
// Record IDs come from a database sequence and are never reused.
type ID uint64

// DigestContent returns a hex encoded BLAKE2b digest of raw document bytes.
// It is used to detect whether a document changed between ingests.
func DigestContent(data []byte) string {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MetricCosine names the distance metric used by every collection:
// 1 - cos(a, b), computed on unit-length vectors.
const MetricCosine = "cosine"

// Page is the extracted text of a single page. Number is 1-based;
// 0 means the source has no page structure.
type Page struct {
	Number int
	Text   string
}

// Table is a decoded delimited file. Rows hold raw cell values in column order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Document is a decoded source document ready for chunking.
// Exactly one of Pages or Table is set.
type Document struct {
	Source string
	Format string // "pdf", "csv", "tsv" or "text"
	Pages  []Page
	Table  *Table
}

// IsTabular reports whether the document holds tabular data.
func (d *Document) IsTabular() bool {
	return d.Table != nil
}

// Chunk is a bounded unit of retrievable text.
type Chunk struct {
	Content    string
	Source     string
	Sequence   int // 0-based position among the chunks of one ingest pass
	Provenance Provenance
}

// Kind returns the chunk kind, defaulting to narrative text when no provenance is set.
func (c *Chunk) Kind() Kind {
	if c.Provenance == nil {
		return KindNarrative
	}
	return c.Provenance.Kind()
}

// Extra returns auxiliary provenance such as page numbers or row ranges.
func (c *Chunk) Extra() map[string]string {
	if c.Provenance == nil {
		return map[string]string{}
	}
	return c.Provenance.Attributes()
}

// Record is the persisted unit in an index.
type Record struct {
	Id         ID
	Vector     []float32
	Chunk      Chunk
	InsertedAt time.Time
}

// SearchHit is a record returned from nearest-neighbor search.
// Smaller distances are closer.
type SearchHit struct {
	Record   *Record
	Distance float32
}

// Stats summarizes the contents of a collection.
type Stats struct {
	TotalChunks int
	Sources     []string // distinct sources, sorted
}

// TotalSources returns the number of distinct sources.
func (s *Stats) TotalSources() int {
	return len(s.Sources)
}

// HasSource reports whether any chunk from source is present.
func (s *Stats) HasSource(source string) bool {
	_, found := slices.BinarySearch(s.Sources, source)
	return found
}

// IndexSpec describes the embedding space of a collection.
// A zero Dimension means the dimension is fixed by the first insert.
type IndexSpec struct {
	Model     string
	Dimension int
	Metric    string
}

// SourceManifest records what was ingested for a source.
type SourceManifest struct {
	Source     string
	Digest     string
	Chunks     int
	IngestedAt time.Time
}
