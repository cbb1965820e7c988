package core

import (
	"testing"
)

func TestDigestContent(t *testing.T) {
	a := DigestContent([]byte("name,revenue\nacme,10\n"))
	b := DigestContent([]byte("name,revenue\nacme,10\n"))
	c := DigestContent([]byte("name,revenue\nacme,11\n"))

	if a != b {
		t.Errorf("DigestContent() not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("DigestContent() produced same digest for different content")
	}
	if len(a) != 32 {
		t.Errorf("DigestContent() length = %d, want 32", len(a))
	}
}

func TestChunk_KindAndExtra(t *testing.T) {
	tests := []struct {
		name      string
		chunk     Chunk
		wantKind  Kind
		wantExtra map[string]string
	}{
		{
			name:      "no provenance defaults to narrative",
			chunk:     Chunk{Content: "x", Source: "a.txt"},
			wantKind:  KindNarrative,
			wantExtra: map[string]string{},
		},
		{
			name:      "paged narrative",
			chunk:     Chunk{Content: "x", Source: "a.pdf", Provenance: Narrative{FirstPage: 2, LastPage: 3}},
			wantKind:  KindNarrative,
			wantExtra: map[string]string{"first_page": "2", "last_page": "3"},
		},
		{
			name:      "tabular header",
			chunk:     Chunk{Content: "x", Source: "a.csv", Provenance: TabularHeader{Columns: 4}},
			wantKind:  KindTabularHeader,
			wantExtra: map[string]string{"columns": "4"},
		},
		{
			name:      "tabular rows",
			chunk:     Chunk{Content: "x", Source: "a.csv", Provenance: TabularRows{FirstRow: 1, LastRow: 50}},
			wantKind:  KindTabularRows,
			wantExtra: map[string]string{"first_row": "1", "last_row": "50", "part": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chunk.Kind(); got != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", got, tt.wantKind)
			}
			got := tt.chunk.Extra()
			if len(got) != len(tt.wantExtra) {
				t.Fatalf("Extra() = %v, want %v", got, tt.wantExtra)
			}
			for k, v := range tt.wantExtra {
				if got[k] != v {
					t.Errorf("Extra()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	stats := &Stats{TotalChunks: 3, Sources: []string{"a.csv", "b.pdf"}}

	if stats.TotalSources() != 2 {
		t.Errorf("TotalSources() = %d, want 2", stats.TotalSources())
	}
	if !stats.HasSource("b.pdf") {
		t.Errorf("HasSource(b.pdf) = false, want true")
	}
	if stats.HasSource("c.txt") {
		t.Errorf("HasSource(c.txt) = true, want false")
	}
}
