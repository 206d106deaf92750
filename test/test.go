// Copyright 2019 The NATS Authors
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

// Package test has embedded NATS servers for the console tests
package test

import (
	"testing"
	"time"

	"github.com/nats-io/jsm.go"
	"github.com/nats-io/nats-server/v2/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// Credentials used by the authenticated test servers.
const (
	TestToken    = "s3cr3t"
	TestUser     = "console"
	TestPassword = "pass"
)

// Subjects answered by the responders of ConnectAndVerify.
const (
	EchoSubject = "test.echo"
	DataSubject = "test.data"
	// DataResponse is the reply sent on DataSubject.
	DataResponse = "response"
)

func baseOptions() *server.Options {
	return &server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
}

// StartServer starts a NATS server with opts and stops it when the test ends.
func StartServer(t *testing.T, opts *server.Options) *server.Server {
	t.Helper()

	s, err := server.NewServer(opts)
	if err != nil || s == nil {
		t.Fatalf("No NATS Server object returned: %v", err)
	}

	// To enable debug/trace output in the NATS server,
	// set NoLog to false in the options.
	if !opts.NoLog {
		l := logger.NewStdLogger(true, true, true, false, true)
		s.SetLogger(l, true, true)
	}

	// Run server in Go routine.
	go s.Start()

	// Wait for accept loop(s) to be started
	if !s.ReadyForConnections(10 * time.Second) {
		t.Fatal("Unable to start NATS Server in Go Routine")
	}
	t.Cleanup(s.Shutdown)
	return s
}

// StartBasicServer runs an unauthenticated NATS server on a random port.
func StartBasicServer(t *testing.T) *server.Server {
	return StartServer(t, baseOptions())
}

// StartTokenServer runs a NATS server requiring TestToken.
func StartTokenServer(t *testing.T) *server.Server {
	opts := baseOptions()
	opts.Authorization = TestToken
	return StartServer(t, opts)
}

// StartUserServer runs a NATS server requiring TestUser and TestPassword.
func StartUserServer(t *testing.T) *server.Server {
	opts := baseOptions()
	opts.Username = TestUser
	opts.Password = TestPassword
	return StartServer(t, opts)
}

// StartNkeyServer runs a NATS server accepting one nkey user and returns its seed.
func StartNkeyServer(t *testing.T) (*server.Server, string) {
	t.Helper()
	kp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("Error creating nkey: %v", err)
	}
	seed, err := kp.Seed()
	if err != nil {
		t.Fatalf("Error reading nkey seed: %v", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("Error reading nkey public key: %v", err)
	}

	opts := baseOptions()
	opts.Nkeys = []*server.NkeyUser{{Nkey: pub}}
	return StartServer(t, opts), string(seed)
}

// StartJetStreamServer runs a NATS server with JetStream enabled on a temporary store.
func StartJetStreamServer(t *testing.T) *server.Server {
	opts := baseOptions()
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	return StartServer(t, opts)
}

// NewStream creates a memory stream listening on subjects.
func NewStream(t *testing.T, url, name string, subjects ...string) {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("Unable to connect to %s: %v", url, err)
	}
	defer nc.Close()

	mgr, err := jsm.New(nc, jsm.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("Unable to create JetStream manager: %v", err)
	}
	if known, _ := mgr.IsKnownStream(name); known {
		return
	}
	if _, err := mgr.NewStream(name, jsm.Subjects(subjects...), jsm.MemoryStorage()); err != nil {
		t.Fatalf("Unable to create stream %s: %v", name, err)
	}
}

// ConnectAndVerify connects a responder client to a server. It answers
// requests on EchoSubject with the request body and on DataSubject with
// DataResponse. The connection is closed when the test ends.
func ConnectAndVerify(t *testing.T, url string, options ...nats.Option) *nats.Conn {
	t.Helper()
	c, err := nats.Connect(url, options...)
	if err != nil {
		t.Fatalf("Couldn't connect a client to %s: %v", url, err)
	}
	t.Cleanup(c.Close)

	_, err = c.Subscribe(EchoSubject, func(msg *nats.Msg) {
		_ = msg.Respond(msg.Data)
	})
	if err != nil {
		t.Fatalf("Couldn't subscribe to %q: %v", EchoSubject, err)
	}
	_, err = c.Subscribe(DataSubject, func(msg *nats.Msg) {
		_ = msg.Respond([]byte(DataResponse))
	})
	if err != nil {
		t.Fatalf("Couldn't subscribe to %q: %v", DataSubject, err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Couldn't flush responder subscriptions: %v", err)
	}
	return c
}
