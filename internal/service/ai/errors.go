package ai

import "github.com/zhouzirui/z-chat/internal/config"

// ErrMissingCredential is reported when no API key is configured.
var ErrMissingCredential = config.ErrMissingCredential

// InitError reports that a chat session could not be created. The page keeps
// its input disabled for the rest of its lifetime.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// StreamError reports a provider or network failure while a reply is streaming.
// Fragments delivered before it stay valid.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
