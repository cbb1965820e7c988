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
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSeparators splits on paragraphs, then lines, then words, then characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Span is a trimmed region of the split input. Start and End are byte offsets,
// so input[Start:End] == Text.
type Span struct {
	Text  string
	Start int
	End   int
}

// Len returns the span length in characters.
func (s Span) Len() int {
	return utf8.RuneCountInString(s.Text)
}

// Splitter recursively splits text on an ordered list of separators and packs
// the pieces into windows of at most chunkSize characters, repeating up to
// overlap characters of trailing context at the start of the next window.
//
// A separator stays attached to the piece that follows it and pieces are
// joined without inserting anything, so every span is a literal substring of
// the input. A piece longer than chunkSize is split on the next separator; with
// no separators left it is emitted whole.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// piece is an untrimmed region of the input with its length in characters.
type piece struct {
	start, end int
	runes      int
}

// NewSplitter creates a splitter. With no separators, DefaultSeparators is used.
func NewSplitter(chunkSize, overlap int, separators ...string) *Splitter {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: separators,
	}
}

// Split splits text into trimmed, non-empty spans in document order.
func (s *Splitter) Split(text string) []Span {
	if text == "" {
		return nil
	}
	whole := piece{start: 0, end: len(text), runes: utf8.RuneCountInString(text)}
	merged := s.split(text, whole, s.separators)

	spans := make([]Span, 0, len(merged))
	for _, p := range merged {
		if span, ok := trimSpan(text, p); ok {
			spans = append(spans, span)
		}
	}
	return spans
}

func (s *Splitter) split(text string, p piece, separators []string) []piece {
	sub := text[p.start:p.end]

	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(sub, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var out, fits []piece
	for _, pc := range cut(text, p, separator) {
		if pc.runes <= s.chunkSize {
			fits = append(fits, pc)
			continue
		}
		if len(fits) > 0 {
			out = append(out, s.merge(fits)...)
			fits = nil
		}
		if len(finer) == 0 {
			out = append(out, pc)
		} else {
			out = append(out, s.split(text, pc, finer)...)
		}
	}
	if len(fits) > 0 {
		out = append(out, s.merge(fits)...)
	}
	return out
}

// merge packs consecutive pieces into windows, carrying overlap between them.
func (s *Splitter) merge(pieces []piece) []piece {
	var windows []piece
	var current []piece
	total := 0

	for _, pc := range pieces {
		if total+pc.runes > s.chunkSize && len(current) > 0 {
			windows = append(windows, join(current, total))
			for total > s.overlap || (total+pc.runes > s.chunkSize && total > 0) {
				total -= current[0].runes
				current = current[1:]
			}
		}
		current = append(current, pc)
		total += pc.runes
	}
	if len(current) > 0 {
		windows = append(windows, join(current, total))
	}
	return windows
}

func join(pieces []piece, runes int) piece {
	return piece{start: pieces[0].start, end: pieces[len(pieces)-1].end, runes: runes}
}

// cut splits p at every occurrence of separator, keeping the separator at the
// start of the following piece. Empty pieces are dropped.
func cut(text string, p piece, separator string) []piece {
	sub := text[p.start:p.end]

	var out []piece
	if separator == "" {
		for i := 0; i < len(sub); {
			_, size := utf8.DecodeRuneInString(sub[i:])
			out = append(out, piece{start: p.start + i, end: p.start + i + size, runes: 1})
			i += size
		}
		return out
	}

	bounds := []int{0}
	for i := 0; i < len(sub); {
		j := strings.Index(sub[i:], separator)
		if j < 0 {
			break
		}
		bounds = append(bounds, i+j)
		i += j + len(separator)
	}
	bounds = append(bounds, len(sub))

	for k := 0; k+1 < len(bounds); k++ {
		a, b := bounds[k], bounds[k+1]
		if a == b {
			continue
		}
		out = append(out, piece{
			start: p.start + a,
			end:   p.start + b,
			runes: utf8.RuneCountInString(sub[a:b]),
		})
	}
	return out
}

func trimSpan(text string, p piece) (Span, bool) {
	raw := text[p.start:p.end]
	left := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	right := len(strings.TrimRightFunc(raw, unicode.IsSpace))
	if right <= left {
		return Span{}, false
	}
	return Span{
		Text:  raw[left:right],
		Start: p.start + left,
		End:   p.start + right,
	}, true
}
