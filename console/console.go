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

// Package console is a management console for NATS: it keeps server
// profiles, message templates and variables, publishes and requests
// through a single broker connection and serves all of it over HTTP.
package console

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/nats-io/nats-console/console/models"
)

// Defaults
var (
	DefaultListenPort    = 7780
	DefaultListenAddress = "0.0.0.0"

	// bcryptPrefix from nats-server
	bcryptPrefix = "$2a$"
)

// Options are used to configure the console
type Options struct {
	Name                 string
	ListenAddress        string
	ListenPort           int
	StateFile            string // empty keeps the state in memory
	WatchState           bool
	RequestTimeout       time.Duration
	HistorySize          int
	SubscriptionMessages int
	HTTPCertFile         string
	HTTPKeyFile          string
	HTTPCaFile           string
	HTTPUser             string // User for the HTTP API and the metrics endpoint.
	HTTPPassword         string
	ConstLabels          map[string]string
	Logger               *logrus.Logger
}

// GetDefaultOptions returns the default set of options
func GetDefaultOptions() *Options {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "127.0.0.1"
	}

	return &Options{
		Name:                 fmt.Sprintf("NATS_Console - %s", hostname),
		ListenAddress:        DefaultListenAddress,
		ListenPort:           DefaultListenPort,
		StateFile:            DefaultStateFile,
		RequestTimeout:       DefaultRequestTimeout,
		HistorySize:          DefaultHistorySize,
		SubscriptionMessages: DefaultSubscriptionMessages,
		Logger:               logrus.New(),
	}
}

// A Console instance
type Console struct {
	sync.Mutex
	opts       Options
	logger     *logrus.Logger
	registry   *prometheus.Registry
	metrics    *ConsoleMetrics
	store      *Store
	client     *Client
	dispatcher *Dispatcher
	subs       *SubscriptionManager
	watcher    *StateWatcher
	persister  Persister
	listener   net.Listener
	httpServer *http.Server
	running    bool
}

// NewConsole creates a console. Nothing is loaded or started until Start.
func NewConsole(opts Options) (*Console, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.HTTPCertFile != "" && opts.HTTPKeyFile == "" {
		return nil, fmt.Errorf("an HTTP key file is required with a certificate")
	}

	registry := prometheus.NewRegistry()
	c := &Console{
		opts:     opts,
		logger:   opts.Logger,
		registry: registry,
		metrics:  NewConsoleMetrics(registry, opts.ConstLabels),
	}

	c.client = NewClient(ClientOptions{
		Name:           opts.Name,
		RequestTimeout: opts.RequestTimeout,
		Logger:         opts.Logger,
		Metrics:        c.metrics,
		OnClosed:       c.connectionClosed,
	})

	if opts.StateFile != "" {
		c.persister = NewFilePersister(opts.StateFile)
	} else {
		c.persister = &MemoryPersister{}
	}
	c.store = NewStore(c.persister, c, opts.Logger)
	c.dispatcher = NewDispatcher(c.client, c.store, NewHistory(opts.HistorySize, c.metrics), opts.Logger, c.metrics)
	c.subs = NewSubscriptionManager(c.client, opts.SubscriptionMessages, opts.Logger, c.metrics)
	return c, nil
}

func (c *Console) Store() *Store                       { return c.store }
func (c *Console) Client() *Client                     { return c.client }
func (c *Console) Dispatcher() *Dispatcher             { return c.dispatcher }
func (c *Console) Subscriptions() *SubscriptionManager { return c.subs }
func (c *Console) Registry() *prometheus.Registry      { return c.registry }

// Handler returns the HTTP handler serving the API and the metrics.
func (c *Console) Handler() http.Handler {
	return c.router()
}

// ListenAddr returns the address of the running HTTP listener.
func (c *Console) ListenAddr() net.Addr {
	c.Lock()
	defer c.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// Connect opens the connection to the current server. Without a current
// server the persisted active profile is used.
func (c *Console) Connect(ctx context.Context) error {
	srv, ok := c.store.CurrentServer()
	if !ok {
		for _, s := range c.store.Servers() {
			if s.IsActive {
				srv, ok = s, true
				break
			}
		}
	}
	if !ok {
		return newValidationError("no server selected")
	}
	c.store.SetCurrentServer(srv.ID)

	// a connect always ends the subscriptions of the previous connection,
	// whether it replaces it or fails and leaves nothing behind
	c.subs.ConnectionClosed()
	if err := c.client.Connect(ctx, srv.URL, srv.Credentials()); err != nil {
		c.store.SetConnectionStatus(false, err)
		return err
	}
	c.store.SetConnectionStatus(true, nil)
	c.logger.Infof("connected to %s (%s)", srv.Name, srv.URL)
	return nil
}

// Disconnect closes the broker connection and drops the subscriptions.
func (c *Console) Disconnect() error {
	err := c.client.Disconnect()
	c.subs.ConnectionClosed()
	c.store.SetConnectionStatus(false, nil)
	return err
}

// TestServer dials a profile without touching the live connection.
func (c *Console) TestServer(ctx context.Context, srv models.ServerProfile) error {
	return c.client.TestConnection(ctx, srv.URL, srv.Credentials())
}

func (c *Console) connectionClosed() {
	c.subs.ConnectionClosed()
	c.store.SetConnectionStatus(false, errors.New("connection closed"))
}

// generates the TLS config for https
func (c *Console) generateHTTPTLSConfig() (*tls.Config, error) {
	//  Load in cert and private key
	cert, err := tls.LoadX509KeyPair(c.opts.HTTPCertFile, c.opts.HTTPKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error parsing X509 certificate/key pair (%s, %s): %v",
			c.opts.HTTPCertFile, c.opts.HTTPKeyFile, err)
	}
	cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("error parsing certificate (%s): %v",
			c.opts.HTTPCertFile, err)
	}
	// Create our TLS configuration
	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
		MinVersion:   tls.VersionTLS12,
	}
	// Add in CAs if applicable.
	if c.opts.HTTPCaFile != "" {
		rootPEM, err := os.ReadFile(c.opts.HTTPCaFile)
		if err != nil || rootPEM == nil {
			return nil, fmt.Errorf("failed to load root ca certificate (%s): %v", c.opts.HTTPCaFile, err)
		}
		pool := x509.NewCertPool()
		ok := pool.AppendCertsFromPEM(rootPEM)
		if !ok {
			return nil, fmt.Errorf("failed to parse root ca certificate")
		}
		config.ClientCAs = pool
	}
	return config, nil
}

// isBcrypt checks whether the given password or token is bcrypted.
func isBcrypt(password string) bool {
	return strings.HasPrefix(password, bcryptPrefix)
}

func (c *Console) isValidUserPass(user, password string) bool {
	if user != c.opts.HTTPUser {
		return false
	}
	consolePassword := c.opts.HTTPPassword
	if isBcrypt(consolePassword) {
		if err := bcrypt.CompareHashAndPassword([]byte(consolePassword), []byte(password)); err != nil {
			return false
		}
	} else if consolePassword != password {
		return false
	}
	return true
}

// startHTTP configures and starts the HTTP server.
// caller must lock
func (c *Console) startHTTP() error {
	var err error
	var proto string
	var config *tls.Config

	hp := net.JoinHostPort(c.opts.ListenAddress, strconv.Itoa(c.opts.ListenPort))

	// If a certificate file has been specified, setup TLS with the
	// key provided.
	if c.opts.HTTPCertFile != "" {
		proto = "https"
		c.logger.Debugf("certificate file specified; using https")
		config, err = c.generateHTTPTLSConfig()
		if err != nil {
			return err
		}
		c.listener, err = tls.Listen("tcp", hp, config)
	} else {
		proto = "http"
		c.logger.Debugf("no certificate file specified; using http")
		c.listener, err = net.Listen("tcp", hp)
	}
	if err != nil {
		c.logger.Errorf("can't start HTTP listener: %v", err)
		return err
	}
	c.logger.Infof("console listening at %s://%s", proto, c.listener.Addr())

	c.httpServer = &http.Server{
		Handler:           c.router(),
		MaxHeaderBytes:    1 << 20,
		TLSConfig:         config,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv, l := c.httpServer, c.listener
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("HTTP server stopped: %v", err)
		}
	}()
	return nil
}

// Start loads the state, starts the optional state file watcher and the HTTP server.
func (c *Console) Start() error {
	c.Lock()
	defer c.Unlock()
	if c.running {
		return nil
	}

	if err := c.store.Load(); err != nil {
		return err
	}

	if fp, ok := c.persister.(*FilePersister); ok && c.opts.WatchState {
		w, err := c.store.WatchFile(fp)
		if err != nil {
			return err
		}
		c.watcher = w
	}

	if err := c.startHTTP(); err != nil {
		if c.watcher != nil {
			c.watcher.Close()
			c.watcher = nil
		}
		return err
	}
	c.running = true
	return nil
}

// Stop stops the console
func (c *Console) Stop() {
	c.Lock()
	defer c.Unlock()
	if !c.running {
		return
	}

	if c.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.httpServer.Shutdown(ctx)
		cancel()
		c.httpServer = nil
		c.listener = nil
	}
	if c.watcher != nil {
		_ = c.watcher.Close()
		c.watcher = nil
	}
	_ = c.Disconnect()
	c.running = false
}
