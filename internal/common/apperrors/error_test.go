package apperrors

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorTree(t *testing.T) {
	ErrRoot := New("portal error").SetExitCode(2)
	ErrChild := ErrRoot.New("bootstrap failed")
	ErrLeaf := ErrChild.New("marker not found")

	assert.Equal(t, "marker not found", ErrLeaf.Error())
	assert.ErrorIs(t, ErrLeaf, ErrChild)
	assert.ErrorIs(t, ErrLeaf, ErrRoot)
	assert.NotErrorIs(t, ErrChild, ErrLeaf)
	assert.Equal(t, 2, ErrLeaf.ExitCode())

	ErrSibling := ErrRoot.New("encryption failed")
	assert.NotErrorIs(t, ErrLeaf, ErrSibling)
}

func TestErrorCauses(t *testing.T) {
	ErrRoot := New("transport error")
	cause := errors.New("connection refused")

	t.Run("Err keeps message", func(t *testing.T) {
		err := ErrRoot.Err(cause)
		assert.Equal(t, "transport error", err.Error())
		assert.Equal(t, "transport error; connection refused", err.ErrorAll())
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, ErrRoot)
	})

	t.Run("MsgErr replaces message", func(t *testing.T) {
		err := ErrRoot.MsgErr("GET entry page", cause, nil)
		assert.Equal(t, "GET entry page", err.Error())
		assert.Len(t, err.UnwrapAll(), 1)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("nested causes expand", func(t *testing.T) {
		inner := New("inner").Err(fmt.Errorf("io: eof"))
		err := ErrRoot.Err(inner)
		assert.Equal(t, "transport error; inner; io: eof", err.ErrorAll())
	})

	t.Run("expansion disabled", func(t *testing.T) {
		err := ErrRoot.SetExpandError(false).Err(cause)
		assert.Equal(t, "transport error", err.ErrorAll())
	})

	t.Run("prefix", func(t *testing.T) {
		err := ErrRoot.Msg("timeout").Prefix("step parameters")
		assert.Equal(t, "step parameters: timeout", err.Error())
		assert.ErrorIs(t, err, ErrRoot)
	})
}

func TestExitCode(t *testing.T) {
	ErrRoot := New("config error").SetExitCode(3)
	assert.Equal(t, 3, ExitCode(ErrRoot.Msg("bad"), 1))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", ErrRoot), 1))
	assert.Equal(t, 1, ExitCode(errors.New("plain"), 1))
	assert.Equal(t, 1, ExitCode(New("no code"), 1))
}
