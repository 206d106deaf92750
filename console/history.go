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
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nats-io/nats-console/console/models"
)

// DefaultHistorySize is the number of dispatch entries kept.
const DefaultHistorySize = 50

// History is the bounded, newest first list of dispatch outcomes. It lives
// for the duration of the process only.
type History struct {
	sync.Mutex
	entries []models.HistoryEntry
	size    int
	metrics *ConsoleMetrics
}

func NewHistory(size int, metrics *ConsoleMetrics) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if metrics == nil {
		metrics = NewConsoleMetrics(prometheus.NewRegistry(), nil)
	}
	return &History{size: size, metrics: metrics}
}

// Add puts e in front and drops the oldest entries beyond the size.
func (h *History) Add(e models.HistoryEntry) {
	h.Lock()
	defer h.Unlock()
	h.entries = append([]models.HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.size {
		h.entries = h.entries[:h.size]
	}
	h.metrics.historyEntries.Set(float64(len(h.entries)))
}

// List returns a copy of the entries, newest first.
func (h *History) List() []models.HistoryEntry {
	h.Lock()
	defer h.Unlock()
	return append([]models.HistoryEntry{}, h.entries...)
}

func (h *History) Clear() {
	h.Lock()
	defer h.Unlock()
	h.entries = nil
	h.metrics.historyEntries.Set(0)
}

func (h *History) Len() int {
	h.Lock()
	defer h.Unlock()
	return len(h.entries)
}
