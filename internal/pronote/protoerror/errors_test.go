package protoerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"nil", nil, ""},
		{"foreign", errors.New("boom"), ""},
		{"marker", ErrMarkerNotFound.Msg("no h:' in page"), "BootstrapError::MarkerNotFound"},
		{"malformed", ErrMalformedSessionID, "BootstrapError::MalformedSessionId"},
		{"bootstrap", ErrBootstrap, "BootstrapError"},
		{"transport wrapped", fmt.Errorf("step: %w", ErrTransport.Err(errors.New("eof"))), "TransportError"},
		{"encryption", ErrEncryption, "EncryptionError"},
		{"state", ErrProtocolState.Msg("not identified"), "ProtocolStateError"},
		{"root", ErrProtocol, "ProtocolError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Kind(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrTransport.Msg("dial tcp")))
	assert.True(t, Retryable(ErrMarkerNotFound))
	assert.False(t, Retryable(ErrEncryption))
	assert.False(t, Retryable(ErrProtocolState))
	assert.False(t, Retryable(errors.New("other")))
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 4, ErrMarkerNotFound.ExitCode())
	assert.Equal(t, 3, ErrTransport.Msg("x").ExitCode())
}
