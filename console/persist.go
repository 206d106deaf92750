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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/nats-io/nats-console/console/models"
)

// DefaultStateFile is where the console keeps its servers, topics and variables.
const DefaultStateFile = "nats-interface-storage.json"

// PersistedState is the durable part of the store. Connection state is never persisted.
type PersistedState struct {
	Servers         []models.ServerProfile `json:"servers"`
	Topics          []models.TopicTemplate `json:"topics"`
	GlobalVariables map[string]string      `json:"globalVariables"`
}

// Persister loads and saves the durable state of a Store.
type Persister interface {
	Load() (PersistedState, error)
	Save(PersistedState) error
}

// MemoryPersister keeps the state in memory. It is used when no state file is configured.
type MemoryPersister struct {
	mu    sync.Mutex
	state PersistedState
	saves int
}

func (m *MemoryPersister) Load() (PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryPersister) Save(s PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FilePersister stores the state as JSON in a single file.
type FilePersister struct {
	path string
	mu   sync.Mutex
}

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the state file location.
func (f *FilePersister) Path() string {
	return f.path
}

// Load reads the state file. A missing or empty file yields an empty state.
func (f *FilePersister) Load() (PersistedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return PersistedState{}, nil
		}
		return PersistedState{}, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return PersistedState{}, nil
	}

	var s PersistedState
	if err := json.Unmarshal(data, &s); err != nil {
		return PersistedState{}, fmt.Errorf("parse state file %s: %w", f.path, err)
	}
	return s, nil
}

// Save writes the state file atomically.
func (f *FilePersister) Save(s PersistedState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// StateWatcher reloads a store when its state file is replaced by another process.
type StateWatcher struct {
	watcher *fsnotify.Watcher
	store   *Store
	path    string
	logger  *logrus.Logger
	done    chan struct{}
}

// WatchFile starts watching the state file of p. The store reloads its
// collections on every write or rename of the file. Call Close on the
// returned watcher to stop.
func (s *Store) WatchFile(p *FilePersister) (*StateWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}

	// watch the directory: the atomic rename in Save replaces the inode
	dir := filepath.Dir(p.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("error adding dir to watcher: %w", err)
	}

	sw := &StateWatcher{
		watcher: w,
		store:   s,
		path:    filepath.Clean(p.Path()),
		logger:  s.logger,
		done:    make(chan struct{}),
	}
	go sw.run()
	s.logger.Debugf("watching state file %s", sw.path)
	return sw, nil
}

func (sw *StateWatcher) run() {
	defer close(sw.done)
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := sw.store.Reload(); err != nil {
				sw.logger.Warnf("could not reload state file %s: %s", sw.path, err)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warnf("state file watcher: %s", err)
		}
	}
}

// Close stops the watcher.
func (sw *StateWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}
