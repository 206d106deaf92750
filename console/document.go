// Copyright 2026 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/nats-io/nats-console/console/models"
)

// DocumentFormat is the encoding of a configuration document.
type DocumentFormat string

const (
	FormatJSON     DocumentFormat = "json"
	FormatYAML     DocumentFormat = "yaml"
	FormatJSONGzip DocumentFormat = "json.gz"
)

var gzipMagic = []byte{0x1f, 0x8b}

// FormatFromFilename picks the document format from a file extension.
// Anything unrecognized is JSON.
func FormatFromFilename(name string) DocumentFormat {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return FormatJSONGzip
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ExportFilename returns the conventional file name of an export made at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("nats-config-%s.json", t.UTC().Format("2006-01-02"))
}

// DecodeConfigDocument parses an import payload. Gzip compressed data is
// inflated first. The top level must be an object; absent keys become empty
// collections and entities are not validated.
func DecodeConfigDocument(data []byte, format DocumentFormat) (models.ConfigDocument, error) {
	var doc models.ConfigDocument

	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return doc, &ImportFormatError{Err: err}
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return doc, &ImportFormatError{Err: err}
		}
	}

	switch format {
	case FormatYAML:
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return doc, &ImportFormatError{Err: err}
		}
		if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
			return doc, &ImportFormatError{Err: errors.New("document is not an object")}
		}
		if err := root.Decode(&doc); err != nil {
			return doc, &ImportFormatError{Err: err}
		}
	default:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return doc, &ImportFormatError{Err: errors.New("document is not an object")}
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return doc, &ImportFormatError{Err: err}
		}
	}

	if doc.Servers == nil {
		doc.Servers = []models.ServerProfile{}
	}
	if doc.Topics == nil {
		doc.Topics = []models.TopicTemplate{}
	}
	if doc.Variables == nil {
		doc.Variables = map[string]string{}
	}
	return doc, nil
}

// EncodeConfigDocument writes doc to w in the given format.
func EncodeConfigDocument(w io.Writer, doc models.ConfigDocument, format DocumentFormat) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml document: %w", err)
		}
		return enc.Close()
	case FormatJSONGzip:
		zw := gzip.NewWriter(w)
		if err := encodeJSONDocument(zw, doc); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case FormatJSON, "":
		return encodeJSONDocument(w, doc)
	default:
		return fmt.Errorf("unsupported document format %q", format)
	}
}

func encodeJSONDocument(w io.Writer, doc models.ConfigDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json document: %w", err)
	}
	return nil
}
