package tradfri

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// DeviceUpdate is a sparse change to a device. Unset fields are omitted from
// the payload and leave the gateway state untouched.
type DeviceUpdate struct {
	Name   *string       `json:"9001,omitempty"`
	Bulbs  []BulbUpdate  `json:"3311,omitempty"`
	Relays []RelayUpdate `json:"3312,omitempty"`
}

// BulbUpdate is one entry of a light update. The concrete type is
// *DriverUpdate, *ColdWarmHexUpdate or *RgbXYUpdate, matching the bulb it
// addresses.
type BulbUpdate interface {
	Kind() BulbKind
}

type DriverUpdate struct {
	On             *YesNo  `json:"5850,omitempty"`
	Brightness     *uint8  `json:"5851,omitempty"`
	TransitionTime *uint32 `json:"5712,omitempty"`
}

type ColdWarmHexUpdate struct {
	On               *YesNo         `json:"5850,omitempty"`
	Brightness       *uint8         `json:"5851,omitempty"`
	ColorHex         *ColdWarmColor `json:"5706,omitempty"`
	Hue              *uint32        `json:"5707,omitempty"`
	Saturation       *uint32        `json:"5708,omitempty"`
	ColorTemperature *uint32        `json:"5711,omitempty"`
	TransitionTime   *uint32        `json:"5712,omitempty"`
}

type RgbXYUpdate struct {
	On               *YesNo    `json:"5850,omitempty"`
	Brightness       *uint8    `json:"5851,omitempty"`
	ColorHex         *RgbColor `json:"5706,omitempty"`
	Hue              *uint32   `json:"5707,omitempty"`
	Saturation       *uint32   `json:"5708,omitempty"`
	ColorX           *uint32   `json:"5709,omitempty"`
	ColorY           *uint32   `json:"5710,omitempty"`
	ColorTemperature *uint32   `json:"5711,omitempty"`
	TransitionTime   *uint32   `json:"5712,omitempty"`
}

func (*DriverUpdate) Kind() BulbKind      { return KindDriver }
func (*ColdWarmHexUpdate) Kind() BulbKind { return KindColdWarmHex }
func (*RgbXYUpdate) Kind() BulbKind       { return KindRgbXY }

type RelayUpdate struct {
	On     *YesNo `json:"5850,omitempty"`
	Dimmer *uint8 `json:"5851,omitempty"`
}

type GroupUpdate struct {
	On             *YesNo      `json:"5850,omitempty"`
	Brightness     *uint8      `json:"5851,omitempty"`
	Name           *string     `json:"9001,omitempty"`
	TransitionTime *uint32     `json:"5712,omitempty"`
	Scene          *ResourceID `json:"9039,omitempty"`
}

// LightChange is one logical command for a light. BuildLightUpdate fans it
// out to every bulb of the light in that bulb's own shape; fields a bulb
// cannot express are left out of its entry.
type LightChange struct {
	On               *bool
	Brightness       *uint8
	ColorHex         string
	ColorX, ColorY   *uint32
	ColorTemperature *uint32
	TransitionTime   *uint32
}

// BuildLightUpdate constructs the update carrying ch for every bulb of l.
func BuildLightUpdate(l *Light, ch LightChange) (DeviceUpdate, error) {
	var on *YesNo
	if ch.On != nil {
		on = OnOff(*ch.On)
	}

	upd := DeviceUpdate{Bulbs: make([]BulbUpdate, 0, len(l.Bulbs))}
	for i, b := range l.Bulbs {
		switch b.(type) {
		case *Driver:
			upd.Bulbs = append(upd.Bulbs, &DriverUpdate{
				On:             on,
				Brightness:     ch.Brightness,
				TransitionTime: ch.TransitionTime,
			})
		case *ColdWarmHex:
			u := &ColdWarmHexUpdate{
				On:               on,
				Brightness:       ch.Brightness,
				ColorTemperature: ch.ColorTemperature,
				TransitionTime:   ch.TransitionTime,
			}
			if ch.ColorHex != "" {
				c, err := ParseColdWarmColor(ch.ColorHex)
				if err != nil {
					return DeviceUpdate{}, fmt.Errorf("bulb %d of %d: %w", i, l.ID, err)
				}
				u.ColorHex = &c
			}
			upd.Bulbs = append(upd.Bulbs, u)
		case *RgbXY:
			u := &RgbXYUpdate{
				On:               on,
				Brightness:       ch.Brightness,
				ColorX:           ch.ColorX,
				ColorY:           ch.ColorY,
				ColorTemperature: ch.ColorTemperature,
				TransitionTime:   ch.TransitionTime,
			}
			if ch.ColorHex != "" {
				if err := u.setHex(ch.ColorHex); err != nil {
					return DeviceUpdate{}, fmt.Errorf("bulb %d of %d: %w", i, l.ID, err)
				}
			}
			upd.Bulbs = append(upd.Bulbs, u)
		default:
			return DeviceUpdate{}, fmt.Errorf("bulb %d of %d: unknown bulb type %T", i, l.ID, b)
		}
	}
	return upd, nil
}

// setHex uses the preset when the gateway knows it, and the xy coordinates
// of the colour otherwise.
func (u *RgbXYUpdate) setHex(hex string) error {
	if c, err := ParseRgbColor(hex); err == nil {
		u.ColorHex = &c
		return nil
	}
	col, err := colorful.Hex("#" + trimHash(hex))
	if err != nil {
		return fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	x, y := XYFromColor(col)
	u.ColorX, u.ColorY = &x, &y
	return nil
}

// BuildOutletUpdate switches every relay of o.
func BuildOutletUpdate(o *Outlet, on bool) DeviceUpdate {
	upd := DeviceUpdate{Relays: make([]RelayUpdate, len(o.Relays))}
	for i := range o.Relays {
		upd.Relays[i] = RelayUpdate{On: OnOff(on)}
	}
	return upd
}

func trimHash(s string) string {
	if len(s) > 0 && s[0] == '#' {
		return s[1:]
	}
	return s
}
