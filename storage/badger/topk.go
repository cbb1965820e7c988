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


package badger

import (
	"container/heap"
	"slices"

	"github.com/poiesic/docindex/core"
)

// closer reports whether a ranks ahead of b: smaller distance first, then
// lower ID, which is insertion order.
func closer(a, b core.SearchHit) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Record.Id < b.Record.Id
}

// worstFirst is a max-heap of hits with the furthest hit at the root.
type worstFirst []core.SearchHit

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(core.SearchHit))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	hit := old[n-1]
	*h = old[:n-1]
	return hit
}

// topK keeps the k closest hits offered to it.
type topK struct {
	k    int
	hits worstFirst
}

func newTopK(k int) *topK {
	return &topK{k: k, hits: make(worstFirst, 0, k)}
}

func (t *topK) offer(hit core.SearchHit) {
	if len(t.hits) < t.k {
		heap.Push(&t.hits, hit)
		return
	}
	if closer(hit, t.hits[0]) {
		t.hits[0] = hit
		heap.Fix(&t.hits, 0)
	}
}

// sorted returns the kept hits closest first.
func (t *topK) sorted() []core.SearchHit {
	out := slices.Clone([]core.SearchHit(t.hits))
	slices.SortFunc(out, func(a, b core.SearchHit) int {
		if closer(a, b) {
			return -1
		}
		if closer(b, a) {
			return 1
		}
		return 0
	})
	return out
}
