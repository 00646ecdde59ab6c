package tradfri

import (
	"encoding/json"
	"time"
)

type NotificationEvent int

const (
	EventNewFirmwareAvailable NotificationEvent = 1001
	EventGatewayReboot        NotificationEvent = 1003
	EventInternetUnreachable  NotificationEvent = 5001
)

// Notification is an entry of the gateway's event log.
type Notification struct {
	Event     NotificationEvent `json:"9015"`
	Details   []string          `json:"9017,omitempty"`
	State     int               `json:"9014"`
	Timestamp uint32            `json:"9002"`
}

func (n *Notification) Time() time.Time {
	return unixTime(n.Timestamp)
}

func (e NotificationEvent) String() string {
	switch e {
	case EventGatewayReboot:
		return "gateway rebooting"
	case EventInternetUnreachable:
		return "internet unreachable"
	case EventNewFirmwareAvailable:
		return "new firmware available"
	default:
		return "unknown event"
	}
}

func DecodeNotifications(raw []byte) ([]Notification, error) {
	var n []Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, newDecodeError(err, raw)
	}
	return n, nil
}
