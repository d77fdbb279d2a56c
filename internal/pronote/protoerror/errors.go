// Package protoerror declares the failure kinds of the portal protocol client.
// All kinds derive from ErrProtocol; use errors.Is to test for a kind and Kind
// to name it in user-facing output.
package protoerror

import (
	"errors"

	"github.com/tansive/pronote/internal/common/apperrors"
)

var (
	// ErrProtocol is the root of every protocol client error.
	ErrProtocol = apperrors.New("portal protocol error").SetExitCode(1)

	// ErrTransport is returned for network and I/O failures. The core never retries it.
	ErrTransport = ErrProtocol.New("transport error").SetExitCode(3)

	// ErrBootstrap is returned when the session id cannot be learned from the entry page.
	ErrBootstrap = ErrProtocol.New("bootstrap error").SetExitCode(4)

	// ErrMarkerNotFound is returned when the entry page has no session marker.
	ErrMarkerNotFound = ErrBootstrap.New("session marker not found")

	// ErrMalformedSessionID is returned when the characters after the marker are not a session id.
	ErrMalformedSessionID = ErrBootstrap.New("malformed session id")

	// ErrEncryption is returned for invalid key or IV material, or an impossible padding state.
	ErrEncryption = ErrProtocol.New("encryption error").SetExitCode(5)

	// ErrProtocolState is returned when an operation runs in the wrong handshake state.
	ErrProtocolState = ErrProtocol.New("protocol state error").SetExitCode(6)
)

// Kind names the most specific error kind err belongs to, or "" for foreign errors.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMarkerNotFound):
		return "BootstrapError::MarkerNotFound"
	case errors.Is(err, ErrMalformedSessionID):
		return "BootstrapError::MalformedSessionId"
	case errors.Is(err, ErrBootstrap):
		return "BootstrapError"
	case errors.Is(err, ErrTransport):
		return "TransportError"
	case errors.Is(err, ErrEncryption):
		return "EncryptionError"
	case errors.Is(err, ErrProtocolState):
		return "ProtocolStateError"
	case errors.Is(err, ErrProtocol):
		return "ProtocolError"
	}
	return ""
}

// Retryable reports whether a fresh handshake attempt may succeed after err.
// Encryption and state errors are defects and never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrBootstrap)
}
