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
	"strings"

	"github.com/poiesic/docindex/core"
)

// Chunker turns decoded documents into ordered, bounded chunks.
// It is stateless after construction and safe for concurrent use.
type Chunker struct {
	opts      Options
	narrative *Splitter
	rows      *Splitter
}

// NewChunker creates a chunker from the default options with opts applied.
func NewChunker(opts ...Option) (*Chunker, error) {
	return NewChunkerWithOptions(NewOptions(opts...))
}

// NewChunkerWithOptions creates a chunker from a complete Options value.
func NewChunkerWithOptions(opts Options) (*Chunker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{
		opts:      opts,
		narrative: NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		// Row batches are only ever cut between rows.
		rows: NewSplitter(opts.ChunkSize, opts.ChunkOverlap, "\n\n"),
	}, nil
}

// Options returns the options the chunker was built with.
func (c *Chunker) Options() Options {
	return c.opts
}

// Chunk splits doc into chunks. Sequence numbers start at 0 and increase by one.
// Returns core.ErrEmptyDocument when the document yields no usable text.
func (c *Chunker) Chunk(doc *core.Document) ([]core.Chunk, error) {
	if doc == nil {
		return nil, ErrDocumentRequired
	}

	var chunks []core.Chunk
	var err error
	if doc.IsTabular() {
		chunks, err = c.chunkTable(doc)
	} else {
		chunks, err = c.chunkNarrative(doc)
	}
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyDocument, doc.Source)
	}

	for i := range chunks {
		chunks[i].Source = doc.Source
		chunks[i].Sequence = i
	}
	return chunks, nil
}

// pageMark records where a page starts in the joined narrative text.
type pageMark struct {
	number int
	offset int
}

func (c *Chunker) chunkNarrative(doc *core.Document) ([]core.Chunk, error) {
	var b strings.Builder
	var marks []pageMark
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		marks = append(marks, pageMark{number: page.Number, offset: b.Len()})
		if page.Number > 0 {
			fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", page.Number, page.Text)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(page.Text)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrEmptyDocument, doc.Source)
	}

	spans := c.narrative.Split(text)
	chunks := make([]core.Chunk, 0, len(spans))
	for _, span := range spans {
		chunks = append(chunks, core.Chunk{
			Content: span.Text,
			Provenance: core.Narrative{
				FirstPage: pageAt(marks, span.Start),
				LastPage:  pageAt(marks, span.End-1),
			},
		})
	}
	return chunks, nil
}

// pageAt returns the number of the page containing offset.
func pageAt(marks []pageMark, offset int) int {
	page := 0
	for _, m := range marks {
		if m.offset > offset {
			break
		}
		page = m.number
	}
	return page
}
