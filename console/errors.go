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
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotConnected is returned by the client when no connection is open.
	ErrNotConnected = errors.New("not connected to NATS server")
	// ErrJetStreamUnavailable is returned when the persistent subsystem was not initialized.
	ErrJetStreamUnavailable = errors.New("JetStream not available")
	// ErrAlreadySubscribed is returned when a subject already has an active subscription.
	ErrAlreadySubscribed = errors.New("subject already subscribed")
	// ErrNotFound is returned when an entity id is unknown.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports missing or invalid input caught before any network call.
type ValidationError struct {
	Problems []string
}

func newValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

// ConnectionError wraps a transport level connect failure.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %s", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RequestTimeoutError is returned when no reply arrived within the request window.
type RequestTimeoutError struct {
	Subject string
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.Subject, e.Timeout)
}

// ImportFormatError is returned when an import payload is not a configuration object.
type ImportFormatError struct {
	Err error
}

func (e *ImportFormatError) Error() string {
	if e.Err == nil {
		return "invalid configuration file format"
	}
	return fmt.Sprintf("invalid configuration file format: %s", e.Err)
}

func (e *ImportFormatError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
