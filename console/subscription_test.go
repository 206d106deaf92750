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
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ptu "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nats-io/nats-console/console/models"
	st "github.com/nats-io/nats-console/test"
)

func newConnectedManager(t *testing.T) (*SubscriptionManager, *ConsoleMetrics, string) {
	t.Helper()
	s := st.StartBasicServer(t)
	metrics := NewConsoleMetrics(prometheus.NewRegistry(), nil)
	c := newTestClient(ClientOptions{Metrics: metrics})
	require.NoError(t, c.Connect(context.Background(), s.ClientURL(), models.Credentials{}))
	t.Cleanup(func() { _ = c.Disconnect() })
	return NewSubscriptionManager(c, DefaultSubscriptionMessages, testLogger(), metrics), metrics, s.ClientURL()
}

func TestSubscriptionManager_Rejects(t *testing.T) {
	m := NewSubscriptionManager(newTestClient(ClientOptions{}), 0, testLogger(), nil)

	_, err := m.Subscribe("  ")
	assert.True(t, IsValidation(err))
	_, err = m.Subscribe("orders.>")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, m.List())

	ok, err := m.Unsubscribe("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = m.Listen("missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriptionManager_BoundedMessages(t *testing.T) {
	m, metrics, url := newConnectedManager(t)

	info, err := m.Subscribe("orders.>")
	require.NoError(t, err)
	assert.True(t, info.IsActive)
	assert.Equal(t, "orders.>", info.Topic)
	assert.Equal(t, float64(1), ptu.ToFloat64(metrics.activeSubscriptions))

	pub := st.ConnectAndVerify(t, url)
	for i := 0; i < 105; i++ {
		require.NoError(t, pub.Publish("orders."+strconv.Itoa(i), []byte(strconv.Itoa(i))))
	}
	require.NoError(t, pub.Flush())

	require.Eventually(t, func() bool {
		return m.List()[0].MessageCount == 105
	}, 5*time.Second, 10*time.Millisecond)

	msgs := m.Messages()
	require.Len(t, msgs, DefaultSubscriptionMessages)
	assert.Equal(t, "104", msgs[0].Payload)
	assert.Equal(t, "orders.104", msgs[0].Subject)
	assert.Equal(t, "orders.>", msgs[0].Topic)
	assert.Equal(t, info.ID, msgs[0].SubscriptionID)
	assert.Equal(t, "5", msgs[len(msgs)-1].Payload)
	assert.Equal(t, float64(105), ptu.ToFloat64(metrics.subscriptionMessages.WithLabelValues("orders.>")))

	m.ClearMessages()
	assert.Empty(t, m.Messages())
	assert.Equal(t, uint64(105), m.List()[0].MessageCount)
}

func TestSubscriptionManager_ListenAndUnsubscribe(t *testing.T) {
	m, metrics, url := newConnectedManager(t)

	info, err := m.Subscribe("events")
	require.NoError(t, err)

	_, err = m.Subscribe("events")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
	assert.Len(t, m.List(), 1)

	ch, cancel, err := m.Listen(info.ID, 8)
	require.NoError(t, err)
	defer cancel()

	pub := st.ConnectAndVerify(t, url)
	require.NoError(t, pub.Publish("events", []byte("hello")))

	select {
	case msg := <-ch:
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("listener got nothing")
	}

	ok, err := m.Unsubscribe(info.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, open := <-ch
	assert.False(t, open, "listener channel closes on unsubscribe")

	list := m.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
	assert.Equal(t, float64(0), ptu.ToFloat64(metrics.activeSubscriptions))

	// the subject is free again
	again, err := m.Subscribe("events")
	require.NoError(t, err)
	assert.NotEqual(t, info.ID, again.ID)
	assert.Len(t, m.List(), 2)
}

func TestSubscriptionManager_ConnectionClosed(t *testing.T) {
	m, _, _ := newConnectedManager(t)
	info, err := m.Subscribe("a")
	require.NoError(t, err)
	ch, _, err := m.Listen(info.ID, 1)
	require.NoError(t, err)

	m.ConnectionClosed()
	assert.False(t, m.List()[0].IsActive)
	_, open := <-ch
	assert.False(t, open)

	// listening to an inactive subscription yields a closed channel
	ch, _, err = m.Listen(info.ID, 1)
	require.NoError(t, err)
	_, open = <-ch
	assert.False(t, open)
}
