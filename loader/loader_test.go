package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"report.pdf", FormatPDF, false},
		{"REPORT.PDF", FormatPDF, false},
		{"sales.csv", FormatCSV, false},
		{"sales.tsv", FormatTSV, false},
		{"notes.txt", FormatText, false},
		{"README.md", FormatText, false},
		{"slides.pptx", "", true},
		{"noextension", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load(context.Background(), "image.png", []byte{0x89, 0x50})
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

func TestLoad_CSV(t *testing.T) {
	data := []byte("name,revenue\nacme,10\nglobex,\ninitech,7\n")

	doc, err := Load(context.Background(), "sales.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", doc.Source)
	assert.Equal(t, "csv", doc.Format)
	require.True(t, doc.IsTabular())
	assert.Equal(t, []string{"name", "revenue"}, doc.Table.Columns)
	assert.Equal(t, [][]string{{"acme", "10"}, {"globex", ""}, {"initech", "7"}}, doc.Table.Rows)
}

func TestLoad_CSVWithBOMAndShortRows(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,label,score\n1,first\n\n2,second,0.5\n")...)

	doc, err := Load(context.Background(), "scores.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "label", "score"}, doc.Table.Columns)
	assert.Equal(t, [][]string{{"1", "first", ""}, {"2", "second", "0.5"}}, doc.Table.Rows)
}

func TestLoad_TSV(t *testing.T) {
	doc, err := Load(context.Background(), "people.tsv", []byte("name\tcity\nAda\tLondon\n"))
	require.NoError(t, err)
	assert.Equal(t, "tsv", doc.Format)
	assert.Equal(t, []string{"name", "city"}, doc.Table.Columns)
	assert.Equal(t, [][]string{{"Ada", "London"}}, doc.Table.Rows)
}

func TestLoad_Latin1Fallback(t *testing.T) {
	// "café" with é encoded as a single ISO-8859-1 byte.
	data := []byte("item,price\ncaf\xe9,3\n")

	doc, err := Load(context.Background(), "menu.csv", data)
	require.NoError(t, err)
	assert.Equal(t, "café", doc.Table.Rows[0][0])
}

func TestLoad_HeaderOnlyTable(t *testing.T) {
	for _, data := range []string{"name,revenue\n", ""} {
		_, err := Load(context.Background(), "empty.csv", []byte(data))
		assert.True(t, errors.Is(err, core.ErrEmptyDocument), "input %q", data)
	}
}

func TestLoad_MalformedCSV(t *testing.T) {
	_, err := Load(context.Background(), "bad.csv", []byte("a,b\n\"unterminated,1\n"))
	assert.True(t, errors.Is(err, core.ErrDecoding))
}

func TestLoad_TooManyFields(t *testing.T) {
	_, err := Load(context.Background(), "wide.csv", []byte("a,b\n1,2,3\n"))
	assert.True(t, errors.Is(err, core.ErrDecoding))
}

func TestLoad_Text(t *testing.T) {
	doc, err := Load(context.Background(), "notes.md", []byte("# Heading\n\nBody text."))
	require.NoError(t, err)
	assert.Equal(t, "text", doc.Format)
	assert.False(t, doc.IsTabular())
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 0, doc.Pages[0].Number)
	assert.Equal(t, "# Heading\n\nBody text.", doc.Pages[0].Text)
}

func TestLoad_TextLatin1(t *testing.T) {
	doc, err := Load(context.Background(), "note.txt", []byte("na\xefve"))
	require.NoError(t, err)
	assert.Equal(t, "naïve", doc.Pages[0].Text)
}

func TestLoad_InvalidPDF(t *testing.T) {
	_, err := Load(context.Background(), "broken.pdf", []byte("this is not a pdf"))
	assert.True(t, errors.Is(err, core.ErrDecoding))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("k,v\na,1\n"), 0o600))

	doc, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", doc.Source)
	assert.Len(t, doc.Table.Rows, 1)

	_, err = LoadFile(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
