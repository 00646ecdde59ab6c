package tradfri

import (
	"encoding/json"
	"fmt"
	"time"
)

// Device is a resource listed under DeviceEndpoint. The concrete type is
// *RemoteControl, *Light or *Outlet.
type Device interface {
	Type() DeviceType
}

// RemoteControl is a battery powered remote. None of its fields are decoded.
type RemoteControl struct{}

func (*RemoteControl) Type() DeviceType { return TypeRemote }

type DeviceInfo struct {
	Manufacturer string  `json:"0"`
	Model        string  `json:"1"`
	SerialNumber *string `json:"2,omitempty"`
	Firmware     string  `json:"3"`
	PowerSource  *uint32 `json:"6,omitempty"`
	Battery      *uint32 `json:"9,omitempty"`
}

// deviceHeader holds the fields shared by every addressable device.
type deviceHeader struct {
	Info      DeviceInfo `json:"3"`
	Name      string     `json:"9001"`
	CreatedAt uint32     `json:"9002"`
	ID        ResourceID `json:"9003"`
	Reachable YesNo      `json:"9019"`
	LastSeen  uint32     `json:"9020"`
}

var headerKeys = []string{keyDeviceInfo, keyName, keyCreatedAt, keyID, keyReachable, keyLastSeen}

func (h *deviceHeader) createdAt() time.Time { return unixTime(h.CreatedAt) }
func (h *deviceHeader) lastSeen() time.Time  { return unixTime(h.LastSeen) }

// DecodeDevice reads the device type of raw and decodes the matching device.
func DecodeDevice(raw []byte) (Device, error) {
	p, err := parseProps(raw)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	dev, err := decodeDevice(p)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	return dev, nil
}

func decodeDevice(p props) (Device, error) {
	if err := p.require(keyDeviceType); err != nil {
		return nil, err
	}
	var code uint32
	if err := json.Unmarshal(p[keyDeviceType], &code); err != nil {
		return nil, fmt.Errorf("device type: %w", err)
	}
	if code > 0xff {
		return nil, &UnsupportedDeviceTypeError{Code: code}
	}
	switch DeviceType(code) {
	case TypeRemote:
		return &RemoteControl{}, nil
	case TypeLight:
		return decodeLight(p)
	case TypeOutlet:
		return decodeOutlet(p)
	default:
		return nil, &UnsupportedDeviceTypeError{Code: code}
	}
}

func decodeHeader(p props) (deviceHeader, error) {
	h := deviceHeader{}
	if err := p.require(headerKeys...); err != nil {
		return h, err
	}
	sub := props{}
	for _, k := range headerKeys {
		sub[k] = p[k]
	}
	if err := sub.decode(&h); err != nil {
		return h, err
	}
	return h, nil
}

func decodeIDs(raw []byte) ([]ResourceID, error) {
	var ids []ResourceID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, newDecodeError(err, raw)
	}
	return ids, nil
}
