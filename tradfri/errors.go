package tradfri

import (
	"errors"
	"fmt"
)

var (
	// ErrDiscoveryTimeout is returned when no gateway answered in time.
	ErrDiscoveryTimeout = errors.New("gateway not found, mDNS discovery timeout")

	// ErrDetached is returned by mutators on values not fetched through a
	// connected gateway.
	ErrDetached = errors.New("resource is not bound to a connected gateway")
)

// DecodeError reports a payload that does not match the expected schema.
type DecodeError struct {
	Message string
	Raw     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s, raw data: %s", e.Message, e.Raw)
}

func newDecodeError(err error, raw []byte) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	var ue *UnsupportedDeviceTypeError
	if errors.As(err, &ue) {
		return err
	}
	return &DecodeError{Message: err.Error(), Raw: string(raw)}
}

type UnsupportedDeviceTypeError struct {
	Code uint32
}

func (e *UnsupportedDeviceTypeError) Error() string {
	return fmt.Sprintf("unsupported device type: %d", e.Code)
}

// UnexpectedResourceKindError is returned when an id resolves to a
// different kind of resource than the caller asked for.
type UnexpectedResourceKindError struct {
	Expected string
	Got      string
}

func (e *UnexpectedResourceKindError) Error() string {
	return fmt.Sprintf("expected device type %s, got %s", e.Expected, e.Got)
}
