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

	"github.com/nats-io/nuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nats-io/nats-console/console/models"
)

// DefaultSubscriptionMessages is the number of received messages kept.
const DefaultSubscriptionMessages = 100

// Subscriber is the part of the client used by the subscription manager.
type Subscriber interface {
	IsConnected() bool
	Subscribe(subject string, handler MessageHandler) error
	Unsubscribe(subject string) error
}

type subscriptionState struct {
	info      models.SubscriptionInfo
	listeners map[int]chan models.SubscriptionMessage
}

// SubscriptionManager tracks the subscriptions opened from the console and
// the messages they received.
type SubscriptionManager struct {
	sync.Mutex
	client      Subscriber
	logger      *logrus.Logger
	metrics     *ConsoleMetrics
	maxMessages int

	order        []string
	subs         map[string]*subscriptionState
	messages     []models.SubscriptionMessage
	nextListener int
}

func NewSubscriptionManager(client Subscriber, maxMessages int, logger *logrus.Logger, metrics *ConsoleMetrics) *SubscriptionManager {
	if maxMessages <= 0 {
		maxMessages = DefaultSubscriptionMessages
	}
	if logger == nil {
		logger = logrus.New()
	}
	if metrics == nil {
		metrics = NewConsoleMetrics(prometheus.NewRegistry(), nil)
	}
	return &SubscriptionManager{
		client:      client,
		logger:      logger,
		metrics:     metrics,
		maxMessages: maxMessages,
		subs:        map[string]*subscriptionState{},
	}
}

// Subscribe starts receiving messages on subject.
func (m *SubscriptionManager) Subscribe(subject string) (models.SubscriptionInfo, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return models.SubscriptionInfo{}, newValidationError("subject is required")
	}
	if !m.client.IsConnected() {
		return models.SubscriptionInfo{}, ErrNotConnected
	}

	state := &subscriptionState{
		info: models.SubscriptionInfo{
			ID:        nuid.Next(),
			Topic:     subject,
			StartTime: time.Now(),
			IsActive:  true,
		},
		listeners: map[int]chan models.SubscriptionMessage{},
	}
	id := state.info.ID

	// register before subscribing so no early message is lost
	m.Lock()
	m.subs[id] = state
	m.order = append(m.order, id)
	m.Unlock()

	err := m.client.Subscribe(subject, func(subj string, payload []byte, headers map[string]string) {
		m.receive(id, subj, payload, headers)
	})
	if err != nil {
		m.Lock()
		delete(m.subs, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i:i], m.order[i+1:]...)
				break
			}
		}
		m.Unlock()
		return models.SubscriptionInfo{}, err
	}

	m.metrics.activeSubscriptions.Inc()
	m.logger.Infof("subscribed to %s", subject)
	return state.info, nil
}

func (m *SubscriptionManager) receive(id, subject string, payload []byte, headers map[string]string) {
	m.Lock()
	defer m.Unlock()

	state, ok := m.subs[id]
	if !ok || !state.info.IsActive {
		return
	}
	msg := models.SubscriptionMessage{
		ID:             nuid.Next(),
		SubscriptionID: id,
		Timestamp:      time.Now(),
		Topic:          state.info.Topic,
		Subject:        subject,
		Payload:        string(payload),
		Headers:        headers,
	}
	state.info.MessageCount++
	m.messages = append([]models.SubscriptionMessage{msg}, m.messages...)
	if len(m.messages) > m.maxMessages {
		m.messages = m.messages[:m.maxMessages]
	}
	m.metrics.subscriptionMessages.WithLabelValues(state.info.Topic).Inc()

	for _, ch := range state.listeners {
		select {
		case ch <- msg:
		default:
			// slow listeners miss messages
		}
	}
}

// Unsubscribe stops the subscription. The record stays listed as inactive.
func (m *SubscriptionManager) Unsubscribe(id string) (bool, error) {
	m.Lock()
	state, ok := m.subs[id]
	if !ok {
		m.Unlock()
		return false, nil
	}
	if !state.info.IsActive {
		m.Unlock()
		return true, nil
	}
	m.deactivateLocked(state)
	subject := state.info.Topic
	m.Unlock()

	m.logger.Infof("unsubscribed from %s", subject)
	return true, m.client.Unsubscribe(subject)
}

// ConnectionClosed marks every subscription inactive. The client dropped
// them along with the connection.
func (m *SubscriptionManager) ConnectionClosed() {
	m.Lock()
	defer m.Unlock()
	for _, id := range m.order {
		if state := m.subs[id]; state.info.IsActive {
			m.deactivateLocked(state)
		}
	}
}

func (m *SubscriptionManager) deactivateLocked(state *subscriptionState) {
	state.info.IsActive = false
	for k, ch := range state.listeners {
		close(ch)
		delete(state.listeners, k)
	}
	m.metrics.activeSubscriptions.Dec()
}

// List returns every subscription in the order they were opened.
func (m *SubscriptionManager) List() []models.SubscriptionInfo {
	m.Lock()
	defer m.Unlock()
	infos := make([]models.SubscriptionInfo, 0, len(m.order))
	for _, id := range m.order {
		infos = append(infos, m.subs[id].info)
	}
	return infos
}

// Messages returns the received messages, newest first.
func (m *SubscriptionManager) Messages() []models.SubscriptionMessage {
	m.Lock()
	defer m.Unlock()
	return append([]models.SubscriptionMessage{}, m.messages...)
}

func (m *SubscriptionManager) ClearMessages() {
	m.Lock()
	defer m.Unlock()
	m.messages = nil
}

// Listen attaches a listener to an active subscription. The returned
// channel is closed when the subscription ends or cancel is called.
func (m *SubscriptionManager) Listen(id string, buffer int) (<-chan models.SubscriptionMessage, func(), error) {
	m.Lock()
	defer m.Unlock()

	state, ok := m.subs[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ch := make(chan models.SubscriptionMessage, buffer)
	if !state.info.IsActive {
		close(ch)
		return ch, func() {}, nil
	}

	key := m.nextListener
	m.nextListener++
	state.listeners[key] = ch

	cancel := func() {
		m.Lock()
		defer m.Unlock()
		if l, ok := state.listeners[key]; ok {
			close(l)
			delete(state.listeners, key)
		}
	}
	return ch, cancel, nil
}
