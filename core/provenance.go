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
	"fmt"
	"strconv"
)

// Kind distinguishes structurally different chunk types.
type Kind string

const (
	// KindNarrative is running text from a paged or plain document.
	KindNarrative Kind = "narrative-text"
	// KindTabularHeader is the synthesized schema summary of a table.
	KindTabularHeader Kind = "tabular-header"
	// KindTabularRows is a rendered batch of table rows.
	KindTabularRows Kind = "tabular-rows"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindNarrative, KindTabularHeader, KindTabularRows:
		return true
	}
	return false
}

// Provenance carries kind-specific metadata for a chunk.
// The set of implementations is closed to this package.
type Provenance interface {
	Kind() Kind
	// Attributes flattens the provenance into string pairs for storage and display.
	Attributes() map[string]string
	provenance()
}

// Narrative is the provenance of a text chunk. Pages are 1-based and inclusive;
// both are 0 when the source has no page structure.
type Narrative struct {
	FirstPage int
	LastPage  int
}

func (Narrative) Kind() Kind { return KindNarrative }

func (n Narrative) Attributes() map[string]string {
	if n.FirstPage == 0 {
		return map[string]string{}
	}
	return map[string]string{
		"first_page": strconv.Itoa(n.FirstPage),
		"last_page":  strconv.Itoa(n.LastPage),
	}
}

func (Narrative) provenance() {}

// TabularHeader is the provenance of a table's schema summary.
type TabularHeader struct {
	Columns int
}

func (TabularHeader) Kind() Kind { return KindTabularHeader }

func (h TabularHeader) Attributes() map[string]string {
	return map[string]string{"columns": strconv.Itoa(h.Columns)}
}

func (TabularHeader) provenance() {}

// TabularRows is the provenance of a batch of rows. Rows are 1-based and inclusive.
// Part is the 0-based piece number when an oversized batch was split.
type TabularRows struct {
	FirstRow int
	LastRow  int
	Part     int
}

func (TabularRows) Kind() Kind { return KindTabularRows }

func (r TabularRows) Attributes() map[string]string {
	return map[string]string{
		"first_row": strconv.Itoa(r.FirstRow),
		"last_row":  strconv.Itoa(r.LastRow),
		"part":      strconv.Itoa(r.Part),
	}
}

func (TabularRows) provenance() {}

// ProvenanceFromAttributes rebuilds a Provenance from its kind and flattened attributes.
func ProvenanceFromAttributes(kind Kind, attrs map[string]string) (Provenance, error) {
	switch kind {
	case KindNarrative:
		var n Narrative
		if err := intAttrs(attrs, map[string]*int{"first_page": &n.FirstPage, "last_page": &n.LastPage}, false); err != nil {
			return nil, err
		}
		return n, nil
	case KindTabularHeader:
		var h TabularHeader
		if err := intAttrs(attrs, map[string]*int{"columns": &h.Columns}, true); err != nil {
			return nil, err
		}
		return h, nil
	case KindTabularRows:
		var r TabularRows
		if err := intAttrs(attrs, map[string]*int{"first_row": &r.FirstRow, "last_row": &r.LastRow, "part": &r.Part}, true); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidChunk, kind)
}

func intAttrs(attrs map[string]string, fields map[string]*int, required bool) error {
	for name, dst := range fields {
		raw, ok := attrs[name]
		if !ok {
			if required {
				return fmt.Errorf("%w: missing attribute %q", ErrInvalidChunk, name)
			}
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: attribute %q: %w", ErrInvalidChunk, name, err)
		}
		*dst = v
	}
	return nil
}
