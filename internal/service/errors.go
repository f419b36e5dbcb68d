package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPost      = errors.New("invalid post")
	ErrCredential       = errors.New("credential error")
	ErrProtocol         = errors.New("protocol error")
	ErrTimeout          = errors.New("timeout")
	ErrUnsupportedMedia = errors.New("unsupported media")
)

// protocolError reports a non-success response for one protocol step.
func protocolError(step string, status int, detail string) error {
	if status == 0 {
		return fmt.Errorf("%w: %s: %s", ErrProtocol, step, detail)
	}
	return fmt.Errorf("%w: %s: status %d: %s", ErrProtocol, step, status, detail)
}
