package store

import "github.com/tansive/pronote/internal/common/apperrors"

var (
	ErrStore         apperrors.Error = apperrors.New("store error").SetExitCode(7)
	ErrAlreadyExists apperrors.Error = ErrStore.New("already exists")
	ErrNotFound      apperrors.Error = ErrStore.New("not found")
	ErrInvalidInput  apperrors.Error = ErrStore.New("invalid input")
)
