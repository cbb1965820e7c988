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


// Package loader decodes raw document bytes into core.Document values.
//
// The format is chosen from the file extension. PDF files yield one page per
// PDF page, delimited files (CSV, TSV) yield a table, and plain text or
// Markdown yields a single unnumbered page. Delimited and plain text input is
// decoded as UTF-8 first, then ISO-8859-1, then Windows-1252; the first
// encoding under which the bytes both decode and parse wins.
package loader
