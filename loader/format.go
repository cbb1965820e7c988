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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poiesic/docindex/core"
)

// Format identifies how a document is decoded.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatText Format = "text"
)

var extensions = map[string]Format{
	".pdf": FormatPDF,
	".csv": FormatCSV,
	".tsv": FormatTSV,
	".txt": FormatText,
	".md":  FormatText,
}

// DetectFormat returns the format implied by name's extension.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, name)
	}
	return format, nil
}

// IsDelimited reports whether the format decodes to a table.
func (f Format) IsDelimited() bool {
	return f == FormatCSV || f == FormatTSV
}

// SupportedExtensions lists the recognized file extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".csv", ".tsv", ".txt", ".md"}
}
