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
	"strings"

	"github.com/nats-io/nats-console/console/models"
)

// ResolvedMessage holds the resolved strings of a template.
type ResolvedMessage struct {
	Topic         string `json:"topic"`
	Payload       string `json:"payload"`
	ResponseTopic string `json:"responseTopic,omitempty"`
}

// MergeVariables returns global with local applied on top.
func MergeVariables(global, local map[string]string) map[string]string {
	merged := make(map[string]string, len(global)+len(local))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged
}

// Resolve replaces every {{name}} token in text with its value from the
// merged variable set. Tokens naming an unknown variable are left as is.
func Resolve(text string, global, local map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	vars := MergeVariables(global, local)

	var b strings.Builder
	b.Grow(len(text))
	scanTokens(text, func(lit string) {
		b.WriteString(lit)
	}, func(token, name string) {
		if v, ok := vars[name]; ok {
			b.WriteString(v)
			return
		}
		b.WriteString(token)
	})
	return b.String()
}

// UsedVariables returns the distinct placeholder names of text in order of
// first appearance.
func UsedVariables(text string) []string {
	var names []string
	seen := map[string]struct{}{}
	scanTokens(text, func(string) {}, func(_, name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	})
	return names
}

// HasPlaceholders reports whether text contains at least one token.
func HasPlaceholders(text string) bool {
	return len(UsedVariables(text)) > 0
}

// ResolveTemplate resolves the topic, payload and response topic of t. The
// template's own variables, overlaid with overrides, form the local scope.
func ResolveTemplate(t models.TopicTemplate, global, overrides map[string]string) ResolvedMessage {
	local := MergeVariables(t.Variables, overrides)
	r := ResolvedMessage{
		Topic:   Resolve(t.Topic, global, local),
		Payload: Resolve(t.Payload, global, local),
	}
	if t.ResponseTopic != "" {
		r.ResponseTopic = Resolve(t.ResponseTopic, global, local)
	}
	return r
}

// scanTokens walks text left to right. A token is "{{" followed by one or
// more word characters and "}}"; anything else is passed to lit one byte
// at a time so that a later "{{" can still start a token.
func scanTokens(text string, lit func(string), tok func(token, name string)) {
	start := 0
	i := 0
	for i < len(text) {
		if end, ok := tokenAt(text, i); ok {
			if start < i {
				lit(text[start:i])
			}
			tok(text[i:end], text[i+2:end-2])
			i = end
			start = i
			continue
		}
		i++
	}
	if start < len(text) {
		lit(text[start:])
	}
}

// tokenAt returns the end offset of a token starting at i.
func tokenAt(text string, i int) (int, bool) {
	if !strings.HasPrefix(text[i:], "{{") {
		return 0, false
	}
	j := i + 2
	for j < len(text) && isWordChar(text[j]) {
		j++
	}
	if j == i+2 || !strings.HasPrefix(text[j:], "}}") {
		return 0, false
	}
	return j + 2, true
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
