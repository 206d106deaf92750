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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nats-io/nats-console/console/models"
	st "github.com/nats-io/nats-console/test"
)

func getTestOptions(t *testing.T) *Options {
	t.Helper()
	o := GetDefaultOptions()
	o.ListenAddress = "127.0.0.1"
	o.ListenPort = 0
	o.StateFile = filepath.Join(t.TempDir(), DefaultStateFile)
	o.RequestTimeout = time.Second
	o.Logger = testLogger()
	return o
}

func startTestConsole(t *testing.T, opts *Options) (*Console, string) {
	t.Helper()
	c, err := NewConsole(*opts)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)
	return c, "http://" + c.ListenAddr().String()
}

func httpGet(url string) (*http.Response, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return httpClient.Get(url)
}

// call sends body as JSON and decodes a JSON response into out when given.
func call(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
	}
	return resp.StatusCode
}

func TestConsole_Basic(t *testing.T) {
	_, base := startTestConsole(t, getTestOptions(t))

	resp, err := httpGet(base + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = httpGet(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "nats_console_connected 0")
}

func TestConsole_StartStopIdempotent(t *testing.T) {
	c, err := NewConsole(*getTestOptions(t))
	require.NoError(t, err)
	require.NoError(t, c.Start())
	require.NoError(t, c.Start())
	c.Stop()
	c.Stop()
	assert.Nil(t, c.ListenAddr())
}

func TestConsole_CertWithoutKey(t *testing.T) {
	opts := getTestOptions(t)
	opts.HTTPCertFile = "cert.pem"
	_, err := NewConsole(*opts)
	assert.Error(t, err)
}

func TestConsole_UserPass(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	for name, password := range map[string]string{"plain": "secret", "bcrypt": string(hashed)} {
		t.Run(name, func(t *testing.T) {
			opts := getTestOptions(t)
			opts.HTTPUser = "colin"
			opts.HTTPPassword = password
			_, base := startTestConsole(t, opts)
			host := strings.TrimPrefix(base, "http://")

			tests := []struct {
				url  string
				want int
			}{
				{"http://colin:secret@" + host + "/metrics", http.StatusOK},
				{"http://colin:secret@" + host + "/api/servers", http.StatusOK},
				{base + "/metrics", http.StatusUnauthorized},
				{base + "/api/servers", http.StatusUnauthorized},
				{"http://garbage:badpass@" + host + "/metrics", http.StatusUnauthorized},
				{"http://colin:badpass@" + host + "/metrics", http.StatusUnauthorized},
				{"http://foo:secret@" + host + "/metrics", http.StatusUnauthorized},
				{base + "/healthz", http.StatusOK},
			}
			for _, tt := range tests {
				resp, err := httpGet(tt.url)
				require.NoError(t, err)
				resp.Body.Close()
				assert.Equal(t, tt.want, resp.StatusCode, tt.url)
			}
		})
	}
}

func TestConsole_ServerLifecycle(t *testing.T) {
	ns := st.StartTokenServer(t)
	_, base := startTestConsole(t, getTestOptions(t))

	var srv models.ServerProfile
	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/servers",
		models.ServerProfile{Name: "local", URL: ns.ClientURL(), Token: "wrong", IsActive: true}, &srv))
	assert.False(t, srv.IsActive)

	var problem map[string]string
	assert.Equal(t, http.StatusBadRequest, call(t, "POST", base+"/api/servers", models.ServerProfile{Name: "no url"}, &problem))
	assert.Contains(t, problem["error"], "url")

	// connecting without a selected server is rejected
	assert.Equal(t, http.StatusBadRequest, call(t, "POST", base+"/api/connection/connect", nil, nil))

	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/servers/"+srv.ID+"/activate", nil, &srv))
	assert.True(t, srv.IsActive)

	// wrong token
	assert.Equal(t, http.StatusBadGateway, call(t, "POST", base+"/api/servers/"+srv.ID+"/test", nil, nil))
	assert.Equal(t, http.StatusBadGateway, call(t, "POST", base+"/api/connection/connect", nil, nil))
	var state connectionResponse
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/connection", nil, &state))
	assert.False(t, state.Connected)
	assert.NotEmpty(t, state.Error)

	token := st.TestToken
	require.Equal(t, http.StatusOK, call(t, "PATCH", base+"/api/servers/"+srv.ID, models.ServerPatch{Token: &token}, &srv))
	assert.Equal(t, st.TestToken, srv.Token)
	assert.Equal(t, http.StatusOK, call(t, "POST", base+"/api/servers/"+srv.ID+"/test", nil, nil))

	state = connectionResponse{}
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/connection/connect", nil, &state))
	assert.True(t, state.Connected)
	assert.Equal(t, srv.ID, state.CurrentServerID)
	assert.Empty(t, state.Error)

	assert.Equal(t, http.StatusNotFound, call(t, "PATCH", base+"/api/servers/missing", models.ServerPatch{Token: &token}, nil))
	assert.Equal(t, http.StatusNotFound, call(t, "DELETE", base+"/api/servers/missing", nil, nil))

	// deleting the current server drops the connection
	require.Equal(t, http.StatusNoContent, call(t, "DELETE", base+"/api/servers/"+srv.ID, nil, nil))
	state = connectionResponse{}
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/connection", nil, &state))
	assert.Equal(t, connectionResponse{}, state)
	assert.Eventually(t, func() bool { return ns.NumClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func connectConsole(t *testing.T, base, url string) models.ServerProfile {
	t.Helper()
	var srv models.ServerProfile
	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/servers", models.ServerProfile{Name: "local", URL: url}, &srv))
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/servers/"+srv.ID+"/activate", nil, nil))
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/connection/connect", nil, nil))
	return srv
}

func TestConsole_TopicDispatch(t *testing.T) {
	ns := st.StartBasicServer(t)
	st.ConnectAndVerify(t, ns.ClientURL())
	_, base := startTestConsole(t, getTestOptions(t))

	var tmpl models.TopicTemplate
	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/topics", models.TopicTemplate{
		Name:        "echo",
		Topic:       "test.{{svc}}",
		Payload:     `{"user":"{{userId}}","env":"{{env}}"}`,
		Variables:   map[string]string{"userId": "42"},
		MessageType: models.Request,
	}, &tmpl))
	require.Equal(t, http.StatusOK, call(t, "PUT", base+"/api/variables/svc", variableRequest{Value: "echo"}, nil))
	require.Equal(t, http.StatusOK, call(t, "PUT", base+"/api/variables/env", variableRequest{Value: "dev"}, nil))

	var preview previewResponse
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/topics/"+tmpl.ID+"/preview",
		overridesRequest{Variables: map[string]string{"userId": "7"}}, &preview))
	assert.Equal(t, "test.echo", preview.Topic)
	assert.Equal(t, `{"user":"7","env":"dev"}`, preview.Payload)
	assert.Equal(t, []string{"svc", "userId", "env"}, preview.UsedVariables)

	// nothing is recorded while disconnected
	assert.Equal(t, http.StatusConflict, call(t, "POST", base+"/api/topics/"+tmpl.ID+"/dispatch", nil, nil))

	connectConsole(t, base, ns.ClientURL())

	var entry models.HistoryEntry
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/topics/"+tmpl.ID+"/dispatch", nil, &entry))
	assert.Equal(t, models.StatusSuccess, entry.Status)
	assert.Equal(t, `{"user":"42","env":"dev"}`, entry.Response)
	require.NotNil(t, entry.ResponseTime)

	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/dispatch", CustomMessage{
		Subject: "nobody.listens", Payload: "{}", MessageType: models.Request,
	}, &entry))
	assert.Equal(t, models.StatusError, entry.Status)
	assert.NotEmpty(t, entry.Error)

	assert.Equal(t, http.StatusBadRequest, call(t, "POST", base+"/api/dispatch", CustomMessage{Subject: "x"}, nil))
	assert.Equal(t, http.StatusNotFound, call(t, "POST", base+"/api/topics/missing/dispatch", nil, nil))

	var history historyResponse
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/history", nil, &history))
	require.Len(t, history.Entries, 2)
	assert.Equal(t, "nobody.listens", history.Entries[0].Topic)
	assert.Empty(t, history.InFlight)

	require.Equal(t, http.StatusNoContent, call(t, "DELETE", base+"/api/history", nil, nil))
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/history", nil, &history))
	assert.Empty(t, history.Entries)

	mt := models.JetStream
	require.Equal(t, http.StatusOK, call(t, "PATCH", base+"/api/topics/"+tmpl.ID, models.TopicPatch{MessageType: &mt}, &tmpl))
	assert.True(t, tmpl.IsJetStream)
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/topics/"+tmpl.ID+"/dispatch", nil, &entry))
	assert.Equal(t, ErrJetStreamUnavailable.Error(), entry.Error)

	require.Equal(t, http.StatusNoContent, call(t, "DELETE", base+"/api/topics/"+tmpl.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, "DELETE", base+"/api/topics/"+tmpl.ID, nil, nil))
	require.Equal(t, http.StatusNoContent, call(t, "DELETE", base+"/api/variables/env", nil, nil))

	var vars map[string]string
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/variables", nil, &vars))
	assert.Equal(t, map[string]string{"svc": "echo"}, vars)
}

func TestConsole_ConfigExportImport(t *testing.T) {
	_, base := startTestConsole(t, getTestOptions(t))

	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/servers", models.ServerProfile{Name: "a", URL: "nats://a:4222"}, nil))
	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/topics", models.TopicTemplate{Name: "t", Topic: "a.b", Payload: "{}"}, nil))
	require.Equal(t, http.StatusOK, call(t, "PUT", base+"/api/variables/k", variableRequest{Value: "v"}, nil))

	resp, err := httpGet(base + "/api/config")
	require.NoError(t, err)
	exported, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "nats-config-")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".json")

	_, other := startTestConsole(t, getTestOptions(t))

	// rejected documents leave the store alone
	for _, bad := range []string{"null", "[]", `"x"`, "{"} {
		req, _ := http.NewRequest("POST", other+"/api/config", strings.NewReader(bad))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}

	req, _ := http.NewRequest("POST", other+"/api/config", bytes.NewReader(exported))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var servers []models.ServerProfile
	require.Equal(t, http.StatusOK, call(t, "GET", other+"/api/servers", nil, &servers))
	require.Len(t, servers, 1)
	assert.Equal(t, "a", servers[0].Name)

	yamlDoc := "servers: []\ntopics:\n  - id: y1\n    name: from yaml\n    topic: y.z\n    payload: '{}'\n    messageType: publish\nvariables:\n  region: eu\n"
	req, _ = http.NewRequest("POST", other+"/api/config", strings.NewReader(yamlDoc))
	req.Header.Set("Content-Type", "application/yaml")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var topics []models.TopicTemplate
	require.Equal(t, http.StatusOK, call(t, "GET", other+"/api/topics", nil, &topics))
	require.Len(t, topics, 1)
	assert.Equal(t, "from yaml", topics[0].Name)
	require.Equal(t, http.StatusOK, call(t, "GET", other+"/api/servers", nil, &servers))
	assert.Empty(t, servers)

	resp, err = httpGet(other + "/api/config?format=yaml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".yaml")

	resp, err = httpGet(other + "/api/config?format=xml")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Equal(t, http.StatusNoContent, call(t, "DELETE", other+"/api/config", nil, nil))
	require.Equal(t, http.StatusOK, call(t, "GET", other+"/api/topics", nil, &topics))
	assert.Empty(t, topics)
}

func TestConsole_StatePersistsAcrossRestart(t *testing.T) {
	opts := getTestOptions(t)
	c, base := startTestConsole(t, opts)
	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/servers", models.ServerProfile{Name: "kept", URL: "nats://a:4222"}, nil))
	c.Stop()

	_, base = startTestConsole(t, opts)
	var servers []models.ServerProfile
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/servers", nil, &servers))
	require.Len(t, servers, 1)
	assert.Equal(t, "kept", servers[0].Name)
}

func TestConsole_Streams(t *testing.T) {
	ns := st.StartJetStreamServer(t)
	st.NewStream(t, ns.ClientURL(), "ORDERS", "orders.>")
	_, base := startTestConsole(t, getTestOptions(t))

	assert.Equal(t, http.StatusConflict, call(t, "GET", base+"/api/streams", nil, nil))
	connectConsole(t, base, ns.ClientURL())

	var streams struct {
		Streams []string `json:"streams"`
	}
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/streams", nil, &streams))
	assert.Equal(t, []string{"ORDERS"}, streams.Streams)

	var state connectionResponse
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/connection", nil, &state))
	assert.True(t, state.JetStream)

	var entry models.HistoryEntry
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/dispatch", CustomMessage{
		Subject: "orders.new", Payload: `{"id":1}`, MessageType: models.JetStream, StreamName: "ORDERS",
	}, &entry))
	require.Equal(t, models.StatusSuccess, entry.Status, entry.Error)
	assert.Equal(t, &models.Ack{Stream: "ORDERS", Seq: 1}, entry.Ack)
}

func TestConsole_SubscriptionStream(t *testing.T) {
	ns := st.StartBasicServer(t)
	_, base := startTestConsole(t, getTestOptions(t))

	assert.Equal(t, http.StatusConflict, call(t, "POST", base+"/api/subscriptions", subscribeRequest{Topic: "events.>"}, nil))
	connectConsole(t, base, ns.ClientURL())

	var info models.SubscriptionInfo
	require.Equal(t, http.StatusCreated, call(t, "POST", base+"/api/subscriptions", subscribeRequest{Topic: "events.>"}, &info))
	assert.Equal(t, http.StatusConflict, call(t, "POST", base+"/api/subscriptions", subscribeRequest{Topic: "events.>"}, nil))
	assert.Equal(t, http.StatusNotFound, call(t, "GET", base+"/api/subscriptions/missing/stream", nil, nil))

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/api/subscriptions/" + info.ID + "/stream"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	// the listener is attached before the upgrade, so this cannot be missed
	require.Equal(t, http.StatusOK, call(t, "POST", base+"/api/dispatch", CustomMessage{Subject: "events.one", Payload: "hello"}, nil))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg models.SubscriptionMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "events.one", msg.Subject)
	assert.Equal(t, "hello", msg.Payload)
	assert.Equal(t, info.ID, msg.SubscriptionID)

	var msgs []models.SubscriptionMessage
	require.Eventually(t, func() bool {
		call(t, "GET", base+"/api/subscriptions/messages", nil, &msgs)
		return len(msgs) == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.Equal(t, http.StatusNoContent, call(t, "DELETE", base+"/api/subscriptions/"+info.ID, nil, nil))
	_, _, err = ws.ReadMessage()
	var ce *websocket.CloseError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, websocket.CloseNormalClosure, ce.Code)

	var subs []models.SubscriptionInfo
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/subscriptions", nil, &subs))
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsActive)
	assert.Equal(t, uint64(1), subs[0].MessageCount)

	require.Equal(t, http.StatusNoContent, call(t, "DELETE", base+"/api/subscriptions/messages", nil, nil))
	require.Equal(t, http.StatusOK, call(t, "GET", base+"/api/subscriptions/messages", nil, &msgs))
	assert.Empty(t, msgs)
}

func TestConsole_CancelledOrFailedConnectThenDelete(t *testing.T) {
	ns := st.StartBasicServer(t)
	c, _ := startTestConsole(t, getTestOptions(t))
	store := c.Store()

	srv, err := store.AddServer(models.ServerProfile{Name: "local", URL: ns.ClientURL()})
	require.NoError(t, err)
	_, err = store.SetActive(srv.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Connect(ctx), context.Canceled)
	assert.False(t, c.Client().IsConnected())
	assert.False(t, store.Connection().Connected)
	assert.Eventually(t, func() bool { return ns.NumClients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// a connect that did go through is closed by deleting its server even
	// when the connected flag was never set
	require.NoError(t, c.Client().Connect(context.Background(), ns.ClientURL(), models.Credentials{}))
	require.Eventually(t, func() bool { return ns.NumClients() == 1 }, 2*time.Second, 10*time.Millisecond)
	ok, err := store.DeleteServer(srv.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, c.Client().IsConnected())
	assert.Equal(t, ConnectionState{}, store.Connection())
	assert.Eventually(t, func() bool { return ns.NumClients() == 0 }, 2*time.Second, 10*time.Millisecond)

	bad, err := store.AddServer(models.ServerProfile{Name: "nobody", URL: "nats://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = store.SetActive(bad.ID)
	require.NoError(t, err)
	var connErr *ConnectionError
	require.ErrorAs(t, c.Connect(context.Background()), &connErr)
	assert.False(t, c.Client().IsConnected())
	state := store.Connection()
	assert.False(t, state.Connected)
	assert.NotEmpty(t, state.Error)

	ok, err = store.DeleteServer(bad.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ConnectionState{}, store.Connection())
}

func TestConsole_ReconnectEndsSubscriptions(t *testing.T) {
	ns := st.StartBasicServer(t)
	c, base := startTestConsole(t, getTestOptions(t))
	connectConsole(t, base, ns.ClientURL())

	info, err := c.Subscriptions().Subscribe("events.>")
	require.NoError(t, err)
	msgs, stop, err := c.Subscriptions().Listen(info.ID, 1)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Client().IsConnected())

	subs := c.Subscriptions().List()
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsActive)
	select {
	case _, open := <-msgs:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("listener not closed")
	}

	// the subject is free again on the new connection
	_, err = c.Subscriptions().Subscribe("events.>")
	assert.NoError(t, err)

	// a failed connect ends them as well
	again, err := c.Subscriptions().Subscribe("other")
	require.NoError(t, err)
	srv, err := c.Store().AddServer(models.ServerProfile{Name: "nobody", URL: "nats://127.0.0.1:1"})
	require.NoError(t, err)
	c.Store().SetCurrentServer(srv.ID)
	require.Error(t, c.Connect(context.Background()))
	assert.False(t, c.Client().IsConnected())
	for _, sub := range c.Subscriptions().List() {
		if sub.ID == again.ID {
			assert.False(t, sub.IsActive)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{newValidationError("x"), http.StatusBadRequest},
		{&ImportFormatError{}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{ErrNotConnected, http.StatusConflict},
		{ErrAlreadySubscribed, http.StatusConflict},
		{&ConnectionError{URL: "nats://x", Err: errors.New("refused")}, http.StatusBadGateway},
		{ErrJetStreamUnavailable, http.StatusServiceUnavailable},
		{&RequestTimeoutError{Subject: "a", Timeout: time.Second}, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
