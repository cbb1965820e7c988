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
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errInvalidUTF8 = errors.New("invalid utf-8")

// textDecoder converts raw bytes to a Go string under one encoding.
type textDecoder struct {
	name   string
	decode func([]byte) (string, error)
}

// fallbackDecoders are tried in order.
var fallbackDecoders = []textDecoder{
	{name: "utf-8", decode: decodeUTF8},
	{name: "iso-8859-1", decode: charmapDecoder(charmap.ISO8859_1)},
	{name: "windows-1252", decode: charmapDecoder(charmap.Windows1252)},
}

func decodeUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		out, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
