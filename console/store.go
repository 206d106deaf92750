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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nats-io/nats-console/console/models"
)

// Disconnector closes the live broker connection.
type Disconnector interface {
	Disconnect() error
}

// ConnectionState is the session part of the store. It is never persisted.
type ConnectionState struct {
	CurrentServerID string `json:"currentServerId,omitempty"`
	Connected       bool   `json:"connected"`
	Error           string `json:"error,omitempty"`
}

// Store owns the server profiles, topic templates and global variables of
// the console along with the session state. Every mutation of the three
// collections is mirrored to the Persister before the call returns.
type Store struct {
	sync.RWMutex
	persister Persister
	conn      Disconnector
	logger    *logrus.Logger
	now       func() time.Time

	servers []models.ServerProfile
	topics  []models.TopicTemplate
	globals map[string]string

	currentID string
	connected bool
	connErr   string
}

// NewStore creates an empty store. Call Load to read the persisted collections.
// conn may be nil when no broker connection is ever made, as in the CLI tools.
func NewStore(p Persister, conn Disconnector, logger *logrus.Logger) *Store {
	if p == nil {
		p = &MemoryPersister{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		persister: p,
		conn:      conn,
		logger:    logger,
		now:       time.Now,
		globals:   map[string]string{},
	}
}

// Load reads the persisted collections. Session state starts from defaults.
func (s *Store) Load() error {
	return s.Reload()
}

// Reload replaces the collections with the persisted ones. A current server
// that is no longer known is cleared and its connection closed.
func (s *Store) Reload() error {
	state, err := s.persister.Load()
	if err != nil {
		return err
	}

	s.Lock()
	s.servers = state.Servers
	s.topics = state.Topics
	s.globals = state.GlobalVariables
	if s.globals == nil {
		s.globals = map[string]string{}
	}
	drop := s.dropDanglingCurrentLocked()
	s.Unlock()

	s.logger.Debugf("loaded %d servers, %d topics, %d variables", len(state.Servers), len(state.Topics), len(state.GlobalVariables))
	if drop {
		s.disconnect()
	}
	return nil
}

// Servers returns a copy of the server profiles.
func (s *Store) Servers() []models.ServerProfile {
	s.RLock()
	defer s.RUnlock()
	return append([]models.ServerProfile{}, s.servers...)
}

// Server returns the profile with the given id.
func (s *Store) Server(id string) (models.ServerProfile, bool) {
	s.RLock()
	defer s.RUnlock()
	if i := s.serverIndexLocked(id); i >= 0 {
		return s.servers[i], true
	}
	return models.ServerProfile{}, false
}

// AddServer stores a new profile under a fresh id. The profile always starts inactive.
func (s *Store) AddServer(srv models.ServerProfile) (models.ServerProfile, error) {
	if err := validateServer(srv); err != nil {
		return models.ServerProfile{}, err
	}
	srv.ID = uuid.NewString()
	srv.IsActive = false

	s.Lock()
	defer s.Unlock()
	s.servers = append(s.servers, srv)
	return srv, s.saveLocked()
}

// UpdateServer merges patch onto the profile with the given id. Unknown ids
// are ignored and reported through the boolean. The active flag is managed by
// SetActive only.
func (s *Store) UpdateServer(id string, patch models.ServerPatch) (bool, error) {
	patch.IsActive = nil

	s.Lock()
	defer s.Unlock()
	i := s.serverIndexLocked(id)
	if i < 0 {
		return false, nil
	}
	updated := s.servers[i]
	patch.Apply(&updated)
	if err := validateServer(updated); err != nil {
		return true, err
	}
	s.servers[i] = updated
	return true, s.saveLocked()
}

// DeleteServer removes a profile. Deleting the current server closes the connection.
func (s *Store) DeleteServer(id string) (bool, error) {
	s.Lock()
	i := s.serverIndexLocked(id)
	if i < 0 {
		s.Unlock()
		return false, nil
	}
	s.servers = append(s.servers[:i:i], s.servers[i+1:]...)
	drop := s.dropDanglingCurrentLocked()
	err := s.saveLocked()
	s.Unlock()

	if drop {
		s.disconnect()
	}
	return true, err
}

// SetActive marks the profile as the active one and makes it the current
// server. Switching away from the current server or from a live connection
// closes it.
func (s *Store) SetActive(id string) (bool, error) {
	s.Lock()
	if s.serverIndexLocked(id) < 0 {
		s.Unlock()
		return false, nil
	}
	drop := s.connected || (s.currentID != "" && s.currentID != id)
	for i := range s.servers {
		s.servers[i].IsActive = s.servers[i].ID == id
	}
	s.currentID = id
	s.connected = false
	s.connErr = ""
	err := s.saveLocked()
	s.Unlock()

	if drop {
		s.disconnect()
	}
	return true, err
}

// Topics returns a copy of the topic templates.
func (s *Store) Topics() []models.TopicTemplate {
	s.RLock()
	defer s.RUnlock()
	topics := make([]models.TopicTemplate, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t.Clone())
	}
	return topics
}

// Topic returns the template with the given id.
func (s *Store) Topic(id string) (models.TopicTemplate, bool) {
	s.RLock()
	defer s.RUnlock()
	if i := s.topicIndexLocked(id); i >= 0 {
		return s.topics[i].Clone(), true
	}
	return models.TopicTemplate{}, false
}

// TopicByName returns the template whose id or name equals ref. Ids win over names.
func (s *Store) TopicByName(ref string) (models.TopicTemplate, bool) {
	if t, ok := s.Topic(ref); ok {
		return t, true
	}
	s.RLock()
	defer s.RUnlock()
	for _, t := range s.topics {
		if t.Name == ref {
			return t.Clone(), true
		}
	}
	return models.TopicTemplate{}, false
}

// AddTopic stores a new template under a fresh id.
func (s *Store) AddTopic(t models.TopicTemplate) (models.TopicTemplate, error) {
	t = t.Clone()
	t.Normalize()
	if err := validateTopic(t); err != nil {
		return models.TopicTemplate{}, err
	}
	t.ID = uuid.NewString()

	s.Lock()
	defer s.Unlock()
	s.topics = append(s.topics, t)
	return t.Clone(), s.saveLocked()
}

// UpdateTopic merges patch onto the template with the given id.
func (s *Store) UpdateTopic(id string, patch models.TopicPatch) (bool, error) {
	s.Lock()
	defer s.Unlock()
	i := s.topicIndexLocked(id)
	if i < 0 {
		return false, nil
	}
	updated := s.topics[i].Clone()
	patch.Apply(&updated)
	updated.Normalize()
	if err := validateTopic(updated); err != nil {
		return true, err
	}
	s.topics[i] = updated
	return true, s.saveLocked()
}

// DeleteTopic removes a template.
func (s *Store) DeleteTopic(id string) (bool, error) {
	s.Lock()
	defer s.Unlock()
	i := s.topicIndexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.topics = append(s.topics[:i:i], s.topics[i+1:]...)
	return true, s.saveLocked()
}

// GlobalVariables returns a copy of the global variable set.
func (s *Store) GlobalVariables() map[string]string {
	s.RLock()
	defer s.RUnlock()
	return MergeVariables(s.globals, nil)
}

// SetGlobalVariable sets key to value.
func (s *Store) SetGlobalVariable(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return newValidationError("variable name is required")
	}
	s.Lock()
	defer s.Unlock()
	s.globals[key] = value
	return s.saveLocked()
}

// DeleteGlobalVariable removes key.
func (s *Store) DeleteGlobalVariable(key string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.globals[key]; !ok {
		return nil
	}
	delete(s.globals, key)
	return s.saveLocked()
}

// ExportConfig returns a snapshot of the three collections stamped with the current time.
func (s *Store) ExportConfig() models.ConfigDocument {
	s.RLock()
	defer s.RUnlock()
	now := s.now().UTC()
	topics := make([]models.TopicTemplate, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t.Clone())
	}
	return models.ConfigDocument{
		Servers:    append([]models.ServerProfile{}, s.servers...),
		Topics:     topics,
		Variables:  MergeVariables(s.globals, nil),
		ExportedAt: &now,
	}
}

// ImportConfig replaces the three collections with the document's. Entities
// are taken as they are. A current server missing from the document is
// cleared and its connection closed.
func (s *Store) ImportConfig(doc models.ConfigDocument) error {
	s.Lock()
	s.servers = append([]models.ServerProfile{}, doc.Servers...)
	s.topics = make([]models.TopicTemplate, 0, len(doc.Topics))
	for _, t := range doc.Topics {
		s.topics = append(s.topics, t.Clone())
	}
	s.globals = MergeVariables(doc.Variables, nil)
	drop := s.dropDanglingCurrentLocked()
	err := s.saveLocked()
	s.Unlock()

	s.logger.Infof("imported %d servers, %d topics, %d variables", len(doc.Servers), len(doc.Topics), len(doc.Variables))
	if drop {
		s.disconnect()
	}
	return err
}

// ClearAll empties every collection and resets the session, closing a live connection.
func (s *Store) ClearAll() error {
	s.Lock()
	drop := s.connected || s.currentID != ""
	s.servers = nil
	s.topics = nil
	s.globals = map[string]string{}
	s.currentID = ""
	s.connected = false
	s.connErr = ""
	err := s.saveLocked()
	s.Unlock()

	if drop {
		s.disconnect()
	}
	return err
}

// SetCurrentServer sets the current server reference. An empty id clears it.
func (s *Store) SetCurrentServer(id string) {
	s.Lock()
	defer s.Unlock()
	s.currentID = id
}

// CurrentServer returns the current server profile.
func (s *Store) CurrentServer() (models.ServerProfile, bool) {
	s.RLock()
	defer s.RUnlock()
	if s.currentID == "" {
		return models.ServerProfile{}, false
	}
	if i := s.serverIndexLocked(s.currentID); i >= 0 {
		return s.servers[i], true
	}
	return models.ServerProfile{}, false
}

// SetConnectionStatus records the outcome of the last connection change.
func (s *Store) SetConnectionStatus(connected bool, err error) {
	s.Lock()
	defer s.Unlock()
	s.connected = connected
	s.connErr = ""
	if err != nil {
		s.connErr = err.Error()
	}
}

// Connection returns the session state.
func (s *Store) Connection() ConnectionState {
	s.RLock()
	defer s.RUnlock()
	return ConnectionState{
		CurrentServerID: s.currentID,
		Connected:       s.connected,
		Error:           s.connErr,
	}
}

func (s *Store) serverIndexLocked(id string) int {
	for i := range s.servers {
		if s.servers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) topicIndexLocked(id string) int {
	for i := range s.topics {
		if s.topics[i].ID == id {
			return i
		}
	}
	return -1
}

// dropDanglingCurrentLocked clears a current server reference that points at
// nothing. It reports whether the connection has to be closed, which is
// whenever the reference was cleared: a connect may still be completing while
// the connected flag reads false.
func (s *Store) dropDanglingCurrentLocked() bool {
	if s.currentID == "" || s.serverIndexLocked(s.currentID) >= 0 {
		return false
	}
	s.currentID = ""
	s.connected = false
	s.connErr = ""
	return true
}

func (s *Store) disconnect() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Disconnect(); err != nil {
		s.logger.Warnf("error disconnecting: %s", err)
	}
}

func (s *Store) saveLocked() error {
	topics := make([]models.TopicTemplate, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t.Clone())
	}
	state := PersistedState{
		Servers:         append([]models.ServerProfile{}, s.servers...),
		Topics:          topics,
		GlobalVariables: MergeVariables(s.globals, nil),
	}
	if err := s.persister.Save(state); err != nil {
		s.logger.Errorf("could not persist state: %s", err)
		return err
	}
	return nil
}

func validateServer(srv models.ServerProfile) error {
	var problems []string
	if strings.TrimSpace(srv.Name) == "" {
		problems = append(problems, "server name is required")
	}
	if strings.TrimSpace(srv.URL) == "" {
		problems = append(problems, "server url is required")
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}
	return nil
}

func validateTopic(t models.TopicTemplate) error {
	var problems []string
	if strings.TrimSpace(t.Name) == "" {
		problems = append(problems, "topic name is required")
	}
	if strings.TrimSpace(t.Topic) == "" {
		problems = append(problems, "topic subject is required")
	}
	if !t.MessageType.Valid() {
		problems = append(problems, "unknown message type "+string(t.MessageType))
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}
	return nil
}
