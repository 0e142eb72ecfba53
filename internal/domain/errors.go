package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNoContent        = errors.New("no content")
	ErrTimedOut         = errors.New("timed out")
	ErrConversationBusy = errors.New("conversation busy")
	ErrProviderFailure  = errors.New("provider failure")
)
