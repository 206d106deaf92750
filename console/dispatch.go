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
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nats-io/nats-console/console/models"
)

// Sender is the part of the client used to dispatch messages.
type Sender interface {
	IsConnected() bool
	Publish(ctx context.Context, subject, payload string) error
	Request(ctx context.Context, subject, payload string, timeout time.Duration) (string, error)
	PublishPersistent(ctx context.Context, subject, payload, streamHint string) (models.Ack, error)
}

// VariableSource provides the global variable set.
type VariableSource interface {
	GlobalVariables() map[string]string
}

// CustomMessage is an ad-hoc message typed by the operator. Its text is sent verbatim.
type CustomMessage struct {
	Subject       string             `json:"topic"`
	Payload       string             `json:"payload"`
	MessageType   models.MessageType `json:"messageType"`
	ResponseTopic string             `json:"responseTopic,omitempty"`
	StreamName    string             `json:"streamName,omitempty"`
	IsJetStream   bool               `json:"isJetStream,omitempty"`
}

// Dispatcher sends one message at a time through a Sender and records the
// outcome in a History.
type Dispatcher struct {
	sender  Sender
	vars    VariableSource
	history *History
	logger  *logrus.Logger
	metrics *ConsoleMetrics
	now     func() time.Time

	inflightMu sync.Mutex
	inflight   map[string]models.HistoryEntry
}

func NewDispatcher(sender Sender, vars VariableSource, history *History, logger *logrus.Logger, metrics *ConsoleMetrics) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	if metrics == nil {
		metrics = NewConsoleMetrics(prometheus.NewRegistry(), nil)
	}
	if history == nil {
		history = NewHistory(DefaultHistorySize, metrics)
	}
	return &Dispatcher{
		sender:   sender,
		vars:     vars,
		history:  history,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		inflight: map[string]models.HistoryEntry{},
	}
}

// History returns the history the dispatcher records into.
func (d *Dispatcher) History() *History {
	return d.history
}

// DispatchTemplate resolves t with the global variables and overrides and
// sends it. Send failures are recorded in the returned entry, not returned.
// An error is only returned when the message is rejected before sending, in
// which case nothing is recorded.
func (d *Dispatcher) DispatchTemplate(ctx context.Context, t models.TopicTemplate, overrides map[string]string) (models.HistoryEntry, error) {
	if !d.sender.IsConnected() {
		return models.HistoryEntry{}, ErrNotConnected
	}

	var globals map[string]string
	if d.vars != nil {
		globals = d.vars.GlobalVariables()
	}
	msg := ResolveTemplate(t, globals, overrides)

	entry := models.HistoryEntry{
		Topic:         msg.Topic,
		Payload:       msg.Payload,
		MessageType:   t.MessageType.OrDefault(),
		ResponseTopic: msg.ResponseTopic,
		StreamName:    t.StreamName,
	}
	entry.IsJetStream = entry.MessageType == models.JetStream || t.IsJetStream
	if err := validateDispatch(entry); err != nil {
		return models.HistoryEntry{}, err
	}
	return d.dispatch(ctx, entry), nil
}

// DispatchCustom sends m without any variable resolution.
func (d *Dispatcher) DispatchCustom(ctx context.Context, m CustomMessage) (models.HistoryEntry, error) {
	if !d.sender.IsConnected() {
		return models.HistoryEntry{}, ErrNotConnected
	}

	entry := models.HistoryEntry{
		Topic:         m.Subject,
		Payload:       m.Payload,
		MessageType:   m.MessageType.OrDefault(),
		ResponseTopic: m.ResponseTopic,
		StreamName:    m.StreamName,
	}
	entry.IsJetStream = entry.MessageType == models.JetStream || m.IsJetStream
	if err := validateDispatch(entry); err != nil {
		return models.HistoryEntry{}, err
	}
	return d.dispatch(ctx, entry), nil
}

// InFlight returns the requests still waiting for a reply, newest first.
func (d *Dispatcher) InFlight() []models.HistoryEntry {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()
	entries := make([]models.HistoryEntry, 0, len(d.inflight))
	for _, e := range d.inflight {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries
}

func (d *Dispatcher) dispatch(ctx context.Context, entry models.HistoryEntry) models.HistoryEntry {
	entry.ID = nuid.Next()
	entry.Timestamp = d.now()
	entry.Status = models.StatusSuccess

	mode := entry.MessageType
	if mode == models.Publish && entry.IsJetStream {
		mode = models.JetStream
	}

	start := time.Now()
	var err error
	switch mode {
	case models.Request:
		d.track(entry)
		var reply string
		reply, err = d.sender.Request(ctx, entry.Topic, entry.Payload, 0)
		d.untrack(entry.ID)
		if err == nil {
			entry.Response = reply
			setResponseTime(&entry, time.Since(start))
		}
	case models.JetStream:
		var ack models.Ack
		ack, err = d.sender.PublishPersistent(ctx, entry.Topic, entry.Payload, entry.StreamName)
		if err == nil {
			entry.Ack = &ack
		}
	default:
		err = d.sender.Publish(ctx, entry.Topic, entry.Payload)
	}
	elapsed := time.Since(start)

	if err != nil {
		entry.Status = models.StatusError
		entry.Error = err.Error()
		setResponseTime(&entry, elapsed)
		d.logger.Warnf("%s to %s failed: %s", mode, entry.Topic, err)
	} else {
		d.logger.Debugf("%s to %s completed in %s", mode, entry.Topic, elapsed)
	}

	d.metrics.dispatches.WithLabelValues(string(mode), string(entry.Status)).Inc()
	d.metrics.dispatchLatency.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	d.history.Add(entry)
	return entry
}

func (d *Dispatcher) track(e models.HistoryEntry) {
	e.Status = models.StatusWaiting
	d.inflightMu.Lock()
	d.inflight[e.ID] = e
	d.inflightMu.Unlock()
}

func (d *Dispatcher) untrack(id string) {
	d.inflightMu.Lock()
	delete(d.inflight, id)
	d.inflightMu.Unlock()
}

func setResponseTime(e *models.HistoryEntry, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	e.ResponseTime = &ms
}

func validateDispatch(e models.HistoryEntry) error {
	var problems []string
	if strings.TrimSpace(e.Topic) == "" {
		problems = append(problems, "topic is required")
	}
	if e.Payload == "" {
		problems = append(problems, "payload is required")
	}
	if !e.MessageType.Valid() {
		problems = append(problems, "unknown message type "+string(e.MessageType))
	}
	if len(problems) > 0 {
		return newValidationError(problems...)
	}
	return nil
}
