package domain

import "errors"

var (
	ErrQueueFull          = errors.New("queue full")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrSocketClosed       = errors.New("socket closed")
	ErrAuthentication     = errors.New("authentication failed")
	ErrUnknownUpdateType  = errors.New("unknown update type")
)
