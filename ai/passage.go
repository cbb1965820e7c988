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


package ai

import (
	"fmt"
	"strings"
)

// Passage is a retrieved chunk handed to a Generator.
type Passage struct {
	Content  string
	Source   string
	Distance float32
}

// NoContext is the context text used when no passages were retrieved.
const NoContext = "No relevant documents found."

// passageSeparator separates numbered passages in a formatted context.
const passageSeparator = "\n\n---\n\n"

// FormatContext renders passages as numbered document blocks:
//
//	Document 1 (Source: plan.pdf):
//	<content>
//
// Blocks are separated by a "---" line.
func FormatContext(passages []Passage) string {
	if len(passages) == 0 {
		return NoContext
	}
	parts := make([]string, len(passages))
	for i, p := range passages {
		source := p.Source
		if source == "" {
			source = "Unknown"
		}
		parts[i] = fmt.Sprintf("Document %d (Source: %s):\n%s", i+1, source, p.Content)
	}
	return strings.Join(parts, passageSeparator)
}

// Sources returns the distinct passage sources in first-seen order.
func Sources(passages []Passage) []string {
	seen := make(map[string]bool, len(passages))
	var out []string
	for _, p := range passages {
		if p.Source == "" || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		out = append(out, p.Source)
	}
	return out
}
