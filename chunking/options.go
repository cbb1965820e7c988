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

import "fmt"

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of trailing characters repeated at the start of the next chunk.
	DefaultChunkOverlap = 200
	// DefaultRowsPerBatch is the number of table rows rendered into one chunk.
	DefaultRowsPerBatch = 50
	// DefaultTabularSplitFactor bounds a rendered row batch at ChunkSize times this factor
	// before it is split further.
	DefaultTabularSplitFactor = 2
)

// Options controls how documents are split into chunks.
type Options struct {
	ChunkSize          int
	ChunkOverlap       int
	RowsPerBatch       int
	TabularSplitFactor int
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithChunkOverlap sets the overlap between adjacent narrative chunks.
func WithChunkOverlap(overlap int) Option {
	return func(o *Options) {
		o.ChunkOverlap = overlap
	}
}

// WithRowsPerBatch sets how many table rows are grouped into one chunk.
func WithRowsPerBatch(rows int) Option {
	return func(o *Options) {
		o.RowsPerBatch = rows
	}
}

// WithTabularSplitFactor sets the multiple of ChunkSize above which a row batch is split.
func WithTabularSplitFactor(factor int) Option {
	return func(o *Options) {
		o.TabularSplitFactor = factor
	}
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:          DefaultChunkSize,
		ChunkOverlap:       DefaultChunkOverlap,
		RowsPerBatch:       DefaultRowsPerBatch,
		TabularSplitFactor: DefaultTabularSplitFactor,
	}
}

// NewOptions returns the defaults with opts applied.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be at least 1, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidOptions, o.ChunkSize, o.ChunkOverlap)
	}
	if o.RowsPerBatch < 1 {
		return fmt.Errorf("%w: rows per batch must be at least 1, got %d", ErrInvalidOptions, o.RowsPerBatch)
	}
	if o.TabularSplitFactor < 1 {
		return fmt.Errorf("%w: tabular split factor must be at least 1, got %d", ErrInvalidOptions, o.TabularSplitFactor)
	}
	return nil
}

// tabularLimit is the rendered batch length above which rows are re-split.
func (o Options) tabularLimit() int {
	return o.ChunkSize * o.TabularSplitFactor
}
