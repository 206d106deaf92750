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

// Package models holds the entities managed by the console and their
// portable JSON shapes.
package models

import (
	"time"
)

// ServerProfile is one broker endpoint known to the console.
type ServerProfile struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	Seed     string `json:"seed,omitempty" yaml:"seed,omitempty"`
	IsActive bool   `json:"isActive" yaml:"isActive"`
}

// Credentials returns the authentication fields of the profile.
func (s ServerProfile) Credentials() Credentials {
	return Credentials{
		Username: s.Username,
		Password: s.Password,
		Token:    s.Token,
		Seed:     s.Seed,
	}
}

// Credentials are the optional authentication fields of a connection.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Seed     string `json:"seed,omitempty"`
}

// ServerPatch is a partial update of a ServerProfile. Nil fields are left untouched.
type ServerPatch struct {
	Name     *string `json:"name,omitempty"`
	URL      *string `json:"url,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Token    *string `json:"token,omitempty"`
	Seed     *string `json:"seed,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Apply merges the patch onto s.
func (p ServerPatch) Apply(s *ServerProfile) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.URL != nil {
		s.URL = *p.URL
	}
	if p.Username != nil {
		s.Username = *p.Username
	}
	if p.Password != nil {
		s.Password = *p.Password
	}
	if p.Token != nil {
		s.Token = *p.Token
	}
	if p.Seed != nil {
		s.Seed = *p.Seed
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
}

// MessageType selects how a message is sent.
type MessageType string

const (
	// Publish is a fire-and-forget send.
	Publish MessageType = "publish"
	// Request sends and waits for exactly one reply.
	Request MessageType = "request"
	// JetStream appends the message to a stream and waits for the acknowledgment.
	JetStream MessageType = "jetstream"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case Publish, Request, JetStream:
		return true
	}
	return false
}

// OrDefault returns Publish for an empty message type.
func (t MessageType) OrDefault() MessageType {
	if t == "" {
		return Publish
	}
	return t
}

// TopicTemplate is a reusable, parameterized message definition.
type TopicTemplate struct {
	ID            string            `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Topic         string            `json:"topic" yaml:"topic"`
	Payload       string            `json:"payload" yaml:"payload"`
	Variables     map[string]string `json:"variables" yaml:"variables"`
	MessageType   MessageType       `json:"messageType" yaml:"messageType"`
	ResponseTopic string            `json:"responseTopic,omitempty" yaml:"responseTopic,omitempty"`
	IsJetStream   bool              `json:"isJetStream" yaml:"isJetStream"`
	StreamName    string            `json:"streamName,omitempty" yaml:"streamName,omitempty"`
}

// Normalize applies the write-time rules of a template: an empty message type
// means publish, the jetstream type always carries the jetstream flag and the
// variables map is never nil.
func (t *TopicTemplate) Normalize() {
	t.MessageType = t.MessageType.OrDefault()
	if t.MessageType == JetStream {
		t.IsJetStream = true
	}
	if t.Variables == nil {
		t.Variables = map[string]string{}
	}
}

// Persistent reports whether the template is sent through JetStream.
func (t TopicTemplate) Persistent() bool {
	return t.MessageType == JetStream || t.IsJetStream
}

// Clone returns a deep copy of t.
func (t TopicTemplate) Clone() TopicTemplate {
	c := t
	if t.Variables != nil {
		c.Variables = make(map[string]string, len(t.Variables))
		for k, v := range t.Variables {
			c.Variables[k] = v
		}
	}
	return c
}

// TopicPatch is a partial update of a TopicTemplate. Nil fields are left untouched.
type TopicPatch struct {
	Name          *string            `json:"name,omitempty"`
	Topic         *string            `json:"topic,omitempty"`
	Payload       *string            `json:"payload,omitempty"`
	Variables     *map[string]string `json:"variables,omitempty"`
	MessageType   *MessageType       `json:"messageType,omitempty"`
	ResponseTopic *string            `json:"responseTopic,omitempty"`
	IsJetStream   *bool              `json:"isJetStream,omitempty"`
	StreamName    *string            `json:"streamName,omitempty"`
}

// Apply merges the patch onto t.
func (p TopicPatch) Apply(t *TopicTemplate) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Topic != nil {
		t.Topic = *p.Topic
	}
	if p.Payload != nil {
		t.Payload = *p.Payload
	}
	if p.Variables != nil {
		t.Variables = *p.Variables
	}
	if p.MessageType != nil {
		t.MessageType = *p.MessageType
	}
	if p.ResponseTopic != nil {
		t.ResponseTopic = *p.ResponseTopic
	}
	if p.IsJetStream != nil {
		t.IsJetStream = *p.IsJetStream
	}
	if p.StreamName != nil {
		t.StreamName = *p.StreamName
	}
}

// ConfigDocument is the export/import unit of the console.
type ConfigDocument struct {
	Servers    []ServerProfile   `json:"servers" yaml:"servers"`
	Topics     []TopicTemplate   `json:"topics" yaml:"topics"`
	Variables  map[string]string `json:"variables" yaml:"variables"`
	ExportedAt *time.Time        `json:"exportedAt,omitempty" yaml:"exportedAt,omitempty"`
}

// Status is the outcome of a dispatch attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	// StatusWaiting is only ever seen on in-flight requests.
	StatusWaiting Status = "waiting"
)

// Ack is the acknowledgment of a persistent publish.
type Ack struct {
	Stream string `json:"stream"`
	Seq    uint64 `json:"seq"`
}

// HistoryEntry records one publish, request or persistent publish attempt.
type HistoryEntry struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Topic         string      `json:"topic"`
	Payload       string      `json:"payload"`
	MessageType   MessageType `json:"messageType"`
	ResponseTopic string      `json:"responseTopic,omitempty"`
	StreamName    string      `json:"streamName,omitempty"`
	IsJetStream   bool        `json:"isJetStream,omitempty"`
	Status        Status      `json:"status"`
	Error         string      `json:"error,omitempty"`
	Response      string      `json:"response,omitempty"`
	ResponseTime  *int64      `json:"responseTime,omitempty"` // milliseconds
	Ack           *Ack        `json:"ackInfo,omitempty"`
}

// Failed reports whether the attempt ended in an error.
func (e HistoryEntry) Failed() bool {
	return e.Status == StatusError
}

// SubscriptionInfo describes one subscription opened from the console.
type SubscriptionInfo struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	StartTime    time.Time `json:"startTime"`
	MessageCount uint64    `json:"messageCount"`
	IsActive     bool      `json:"isActive"`
}

// SubscriptionMessage is a message received on a console subscription.
type SubscriptionMessage struct {
	ID             string            `json:"id"`
	SubscriptionID string            `json:"subscriptionId"`
	Timestamp      time.Time         `json:"timestamp"`
	Topic          string            `json:"topic"`
	Subject        string            `json:"subject"`
	Payload        string            `json:"payload"`
	Headers        map[string]string `json:"headers,omitempty"`
}
