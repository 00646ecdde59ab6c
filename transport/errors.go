package transport

import (
	"errors"
	"fmt"

	"github.com/plgd-dev/go-coap/v3/message/codes"
)

var (
	// ErrTransport is wrapped by every failure to open, handshake, read from
	// or write to the secure channel, including timeouts.
	ErrTransport = errors.New("tradfri transport error")

	// ErrClosed is returned when a request is issued on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrAuthentication is wrapped by every failure of the pairing exchange.
	ErrAuthentication = errors.New("tradfri authentication failed")

	// ErrUnexpectedStatus matches any StatusError.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// StatusError is returned when the gateway answers with a non-success code.
type StatusError struct {
	Code    codes.Code
	Payload []byte
}

func (e *StatusError) Error() string {
	if len(e.Payload) > 0 {
		return fmt.Sprintf("unexpected response status %v: %s", e.Code, string(e.Payload))
	}
	return fmt.Sprintf("unexpected response status %v", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
