package tradfri

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DeviceType is the discriminator carried in 5750.
type DeviceType uint8

// YesNo is a wire boolean, 0 or 1. Any other value fails to decode.
type YesNo uint8

// UpdatePriority is the urgency of a pending firmware update (9066).
type UpdatePriority uint8

// ResourceID identifies a device, group or scene. It is assigned by the
// gateway.
type ResourceID uint32

const (
	TypeRemote       DeviceType     = 0
	TypeLight        DeviceType     = 2
	TypeOutlet       DeviceType     = 3
	TypeMotionSensor DeviceType     = 4
	No               YesNo          = 0
	Yes              YesNo          = 1
	PrioNormal       UpdatePriority = 0
	PrioCritical     UpdatePriority = 1
	PrioRequired     UpdatePriority = 2
	PrioForced       UpdatePriority = 5
)

// Resource paths on the gateway.
const (
	DeviceEndpoint       = "15001"
	GroupEndpoint        = "15004"
	SceneEndpoint        = "15005"
	NotificationEndpoint = "15006"
	GatewayEndpoint      = "15011/15012"
)

// Property keys of the numerically keyed resource objects.
const (
	keyDeviceInfo   = "3"
	keyLights       = "3311"
	keyOutlets      = "3312"
	keyColorHex     = "5706"
	keyHue          = "5707"
	keySaturation   = "5708"
	keyColorX       = "5709"
	keyColorY       = "5710"
	keyColorTemp    = "5711"
	keyTransition   = "5712"
	keyDeviceType   = "5750"
	keyOn           = "5850"
	keyBrightness   = "5851"
	keyName         = "9001"
	keyCreatedAt    = "9002"
	keyID           = "9003"
	keyMembers      = "9018"
	keyReachable    = "9019"
	keyLastSeen     = "9020"
	keySceneID      = "9039"
	keySceneIndex   = "9057"
	keyPredefined   = "9068"
	keyDeviceMember = "15002"
)

func (id ResourceID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func devicePath(id ResourceID) string {
	return DeviceEndpoint + "/" + id.String()
}

func groupPath(id ResourceID) string {
	return GroupEndpoint + "/" + id.String()
}

func ToYesNo(t bool) YesNo {
	if t {
		return Yes
	}
	return No
}

// OnOff returns a pointer suitable for the On field of an update.
func OnOff(on bool) *YesNo {
	v := ToYesNo(on)
	return &v
}

func (y YesNo) Bool() bool {
	return y != No
}

func (y YesNo) String() string {
	if y == No {
		return "no"
	}
	return "yes"
}

// UnmarshalJSON accepts only the integers 0 and 1.
func (y *YesNo) UnmarshalJSON(b []byte) error {
	var v uint8
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch YesNo(v) {
	case No, Yes:
		*y = YesNo(v)
		return nil
	}
	return fmt.Errorf("invalid boolean %d, expected 0 or 1", v)
}

// unixTime converts the gateway's 32 bit epoch seconds to UTC.
func unixTime(sec uint32) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

func (t DeviceType) String() string {
	switch t {
	case TypeRemote:
		return "remote"
	case TypeLight:
		return "light"
	case TypeOutlet:
		return "outlet"
	case TypeMotionSensor:
		return "motion sensor"
	default:
		return "type " + strconv.Itoa(int(t))
	}
}

func (u UpdatePriority) String() string {
	switch u {
	case PrioCritical:
		return "critical"
	case PrioForced:
		return "forced"
	case PrioNormal:
		return "normal"
	case PrioRequired:
		return "required"
	default:
		return ""
	}
}
