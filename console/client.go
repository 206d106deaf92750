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
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/jsm.go"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nats-io/nats-console/console/models"
)

const (
	// DefaultRequestTimeout bounds a request when the caller gives no timeout.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultConnectTimeout bounds the initial dial.
	DefaultConnectTimeout = 5 * time.Second
	// DefaultClientName is the connection name announced to the server.
	DefaultClientName = "NATS Console"
)

// ClientOptions configure a Client.
type ClientOptions struct {
	Name           string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         *logrus.Logger
	Metrics        *ConsoleMetrics
	// OnClosed runs when the server side closes the live connection. It is
	// not called for Disconnect or when a newer connection replaces the old one.
	OnClosed func()
	// NATSOpts are appended to the options built from the credentials.
	NATSOpts []nats.Option
}

// MessageHandler receives the messages of a subscription.
type MessageHandler func(subject string, payload []byte, headers map[string]string)

type session struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	mgr *jsm.Manager
}

// Client holds at most one broker connection at a time.
type Client struct {
	sync.Mutex
	opts    ClientOptions
	logger  *logrus.Logger
	metrics *ConsoleMetrics
	group   singleflight.Group

	sess *session
	subs map[string]*nats.Subscription
}

// NewClient creates a disconnected client.
func NewClient(opts ClientOptions) *Client {
	if opts.Name == "" {
		opts.Name = DefaultClientName
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewConsoleMetrics(prometheus.NewRegistry(), nil)
	}
	return &Client{
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		subs:    map[string]*nats.Subscription{},
	}
}

// Connect opens a connection to url. Concurrent calls for the same url and
// credentials share one dial. The connection that completes last becomes
// the live one and any previous connection is closed. A failed connect
// leaves the client disconnected.
//
// When ctx ends first, Connect still waits for the pending dial, which is
// bounded by the connect timeout, and closes its connection before
// returning ctx.Err(). A dial shared with another caller that did not give
// up is left to that caller.
func (c *Client) Connect(ctx context.Context, url string, creds models.Credentials) error {
	if strings.TrimSpace(url) == "" {
		return newValidationError("server url is required")
	}

	key, err := connKey(url, creds)
	if err != nil {
		return err
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		sess, err := c.dial(url, creds)
		if err != nil {
			c.Disconnect()
			return nil, err
		}
		c.install(sess)
		return sess, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return &ConnectionError{URL: url, Err: res.Err}
		}
		return nil
	case <-ctx.Done():
		if res := <-ch; res.Err == nil && !res.Shared {
			c.discard(res.Val.(*session))
		}
		return ctx.Err()
	}
}

// TestConnection dials url with creds and closes the connection right away.
// The live connection is not affected.
func (c *Client) TestConnection(ctx context.Context, url string, creds models.Credentials) error {
	if strings.TrimSpace(url) == "" {
		return newValidationError("server url is required")
	}
	opts, err := c.natsOptions(creds)
	if err != nil {
		return &ConnectionError{URL: url, Err: err}
	}
	opts = append(opts, nats.NoReconnect())

	done := make(chan error, 1)
	go func() {
		nc, err := nats.Connect(url, opts...)
		if err == nil {
			nc.Close()
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return &ConnectionError{URL: url, Err: err}
		}
		return nil
	}
}

func (c *Client) dial(url string, creds models.Credentials) (*session, error) {
	opts, err := c.natsOptions(creds)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	c.logger.Infof("connected to NATS server: %s", nc.ConnectedAddr())

	sess := &session{nc: nc}
	mgr, err := jsm.New(nc, jsm.WithTimeout(c.opts.RequestTimeout))
	if err != nil || !mgr.IsJetStreamEnabled() {
		c.logger.Infof("JetStream is not enabled on %s", nc.ConnectedUrlRedacted())
		return sess, nil
	}
	js, err := nc.JetStream()
	if err != nil {
		c.logger.Warnf("could not initialize JetStream: %s", err)
		return sess, nil
	}
	sess.js = js
	sess.mgr = mgr
	return sess, nil
}

func (c *Client) natsOptions(creds models.Credentials) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name(c.opts.Name),
		nats.Timeout(c.opts.ConnectTimeout),
	}

	switch {
	case creds.Seed != "":
		kp, err := nkeys.FromSeed([]byte(creds.Seed))
		if err != nil {
			return nil, fmt.Errorf("unable to load nkey seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("unable to derive nkey public key: %w", err)
		}
		opts = append(opts, nats.Nkey(pub, kp.Sign))
	case creds.Token != "":
		opts = append(opts, nats.Token(creds.Token))
	case creds.Username != "":
		opts = append(opts, nats.UserInfo(creds.Username, creds.Password))
	}

	opts = append(opts, nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
		if err != nil {
			c.logger.Warnf("%q disconnected: %s", nc.Opts.Name, err)
		}
	}))
	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		c.metrics.reconnects.Inc()
		c.logger.Infof("%q reconnected to %v", nc.Opts.Name, nc.ConnectedAddr())
	}))
	opts = append(opts, nats.ClosedHandler(func(nc *nats.Conn) {
		c.closed(nc)
	}))
	opts = append(opts, nats.ErrorHandler(func(nc *nats.Conn, s *nats.Subscription, err error) {
		if s != nil {
			c.logger.Warnf("error: name=%q, subject=%s, err=%v", nc.Opts.Name, s.Subject, err)
		} else {
			c.logger.Warnf("error: name=%q err=%v", nc.Opts.Name, err)
		}
	}))

	return append(opts, c.opts.NATSOpts...), nil
}

func (c *Client) install(sess *session) {
	c.Lock()
	prev := c.sess
	prevSubs := c.subs
	c.sess = sess
	c.subs = map[string]*nats.Subscription{}
	c.Unlock()

	c.metrics.connected.Set(1)
	if prev != nil {
		c.logger.Debugf("closing previous connection to %s", prev.nc.ConnectedUrlRedacted())
		for _, sub := range prevSubs {
			_ = sub.Unsubscribe()
		}
		prev.nc.Close()
	}
}

// closed handles a connection closed by the server or by the library.
func (c *Client) closed(nc *nats.Conn) {
	c.Lock()
	if c.sess == nil || c.sess.nc != nc {
		c.Unlock()
		return
	}
	c.sess = nil
	c.subs = map[string]*nats.Subscription{}
	c.Unlock()

	c.metrics.connected.Set(0)
	c.logger.Warnf("%q connection closed", nc.Opts.Name)
	if c.opts.OnClosed != nil {
		c.opts.OnClosed()
	}
}

// discard closes sess if it is still the live session.
func (c *Client) discard(sess *session) {
	c.Lock()
	if c.sess != sess {
		c.Unlock()
		return
	}
	c.sess = nil
	c.subs = map[string]*nats.Subscription{}
	c.Unlock()

	c.metrics.connected.Set(0)
	sess.nc.Close()
	c.logger.Infof("dropped connection of a cancelled connect")
}

// Disconnect closes the live connection. It is a no-op when there is none.
func (c *Client) Disconnect() error {
	c.Lock()
	sess := c.sess
	c.sess = nil
	c.subs = map[string]*nats.Subscription{}
	c.Unlock()

	if sess == nil {
		return nil
	}
	c.metrics.connected.Set(0)
	sess.nc.Close()
	c.logger.Infof("disconnected from NATS server")
	return nil
}

// IsConnected reports whether a live connection is held.
func (c *Client) IsConnected() bool {
	c.Lock()
	defer c.Unlock()
	return c.sess != nil && !c.sess.nc.IsClosed()
}

// JetStreamAvailable reports whether persistent publishing is possible.
func (c *Client) JetStreamAvailable() bool {
	c.Lock()
	defer c.Unlock()
	return c.sess != nil && c.sess.js != nil
}

func (c *Client) live() (*session, error) {
	c.Lock()
	defer c.Unlock()
	if c.sess == nil || c.sess.nc.IsClosed() {
		return nil, ErrNotConnected
	}
	return c.sess, nil
}

// Publish sends payload to subject without waiting for anything.
func (c *Client) Publish(_ context.Context, subject, payload string) error {
	sess, err := c.live()
	if err != nil {
		return err
	}
	return sess.nc.Publish(subject, []byte(payload))
}

// Request sends payload and waits for one reply. A timeout of zero or less
// uses the client default. The reply body is returned as text.
func (c *Client) Request(ctx context.Context, subject, payload string, timeout time.Duration) (string, error) {
	sess, err := c.live()
	if err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = c.opts.RequestTimeout
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := sess.nc.RequestWithContext(rctx, subject, []byte(payload))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return "", &RequestTimeoutError{Subject: subject, Timeout: timeout}
		}
		return "", err
	}
	return string(msg.Data), nil
}

// PublishPersistent stores payload in the stream bound to subject and
// returns the acknowledgment. streamHint is informative only.
func (c *Client) PublishPersistent(ctx context.Context, subject, payload, streamHint string) (models.Ack, error) {
	sess, err := c.live()
	if err != nil {
		return models.Ack{}, err
	}
	if sess.js == nil {
		return models.Ack{}, ErrJetStreamUnavailable
	}

	pctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	ack, err := sess.js.Publish(subject, []byte(payload), nats.Context(pctx))
	if err != nil {
		return models.Ack{}, err
	}
	if streamHint != "" && streamHint != ack.Stream {
		c.logger.Warnf("message on %s was stored in stream %s, expected %s", subject, ack.Stream, streamHint)
	}
	return models.Ack{Stream: ack.Stream, Seq: ack.Sequence}, nil
}

// Subscribe registers handler for subject until Unsubscribe or the connection closes.
func (c *Client) Subscribe(subject string, handler MessageHandler) error {
	sess, err := c.live()
	if err != nil {
		return err
	}

	c.Lock()
	if _, ok := c.subs[subject]; ok {
		c.Unlock()
		return ErrAlreadySubscribed
	}
	sub, err := sess.nc.Subscribe(subject, func(m *nats.Msg) {
		handler(m.Subject, m.Data, flattenHeaders(m.Header))
	})
	if err != nil {
		c.Unlock()
		return err
	}
	c.subs[subject] = sub
	c.Unlock()

	// make sure the server knows about the interest before returning
	return sess.nc.Flush()
}

// Unsubscribe cancels the subscription on subject. Unknown subjects are ignored.
func (c *Client) Unsubscribe(subject string) error {
	c.Lock()
	sub, ok := c.subs[subject]
	delete(c.subs, subject)
	c.Unlock()

	if !ok {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
		return err
	}
	return nil
}

// StreamNames lists the streams of the connected account.
func (c *Client) StreamNames() ([]string, error) {
	sess, err := c.live()
	if err != nil {
		return nil, err
	}
	if sess.mgr == nil {
		return nil, ErrJetStreamUnavailable
	}
	return sess.mgr.StreamNames(nil)
}

func flattenHeaders(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// connKey identifies a dial by its url and credentials.
func connKey(url string, creds models.Credentials) (string, error) {
	b, err := json.Marshal(struct {
		URL   string             `json:"url"`
		Creds models.Credentials `json:"creds"`
	}{url, creds})
	if err != nil {
		return "", fmt.Errorf("error marshaling connection profile: %v", err)
	}
	hash := sha256.New()
	hash.Write(b)
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
