package tradfri

import (
	"encoding/json"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

type BulbKind uint8

const (
	KindDriver BulbKind = iota
	KindColdWarmHex
	KindRgbXY
)

func (k BulbKind) String() string {
	switch k {
	case KindDriver:
		return "driver"
	case KindColdWarmHex:
		return "cold/warm"
	case KindRgbXY:
		return "rgb"
	default:
		return "unknown"
	}
}

// Bulb is the state of one light source of a Light. The concrete type is
// *Driver, *ColdWarmHex or *RgbXY.
type Bulb interface {
	Kind() BulbKind
	IsOn() bool
	Level() uint8
}

// Driver is a dimmable light source without colour control.
type Driver struct {
	On             YesNo   `json:"5850"`
	Brightness     uint8   `json:"5851"`
	TransitionTime *uint32 `json:"5712,omitempty"`
}

// ColdWarmHex is a white spectrum light source driven by colour presets.
type ColdWarmHex struct {
	On               YesNo         `json:"5850"`
	Brightness       uint8         `json:"5851"`
	ColorHex         ColdWarmColor `json:"5706"`
	Hue              *uint32       `json:"5707,omitempty"`
	Saturation       *uint32       `json:"5708,omitempty"`
	ColorTemperature *uint32       `json:"5711,omitempty"`
	TransitionTime   *uint32       `json:"5712,omitempty"`
}

// RgbXY is a colour light source addressed by CIE xy chromaticity.
type RgbXY struct {
	On               YesNo     `json:"5850"`
	Brightness       uint8     `json:"5851"`
	ColorHex         *RgbColor `json:"5706,omitempty"`
	Hue              *uint32   `json:"5707,omitempty"`
	Saturation       *uint32   `json:"5708,omitempty"`
	ColorX           uint32    `json:"5709"`
	ColorY           uint32    `json:"5710"`
	ColorTemperature *uint32   `json:"5711,omitempty"`
	TransitionTime   *uint32   `json:"5712,omitempty"`
}

func (d *Driver) Kind() BulbKind { return KindDriver }
func (d *Driver) IsOn() bool     { return d.On.Bool() }
func (d *Driver) Level() uint8   { return d.Brightness }

func (b *ColdWarmHex) Kind() BulbKind { return KindColdWarmHex }
func (b *ColdWarmHex) IsOn() bool     { return b.On.Bool() }
func (b *ColdWarmHex) Level() uint8   { return b.Brightness }

func (b *RgbXY) Kind() BulbKind { return KindRgbXY }
func (b *RgbXY) IsOn() bool     { return b.On.Bool() }
func (b *RgbXY) Level() uint8   { return b.Brightness }

// Color returns the bulb's current colour derived from its xy coordinates.
func (b *RgbXY) Color() colorful.Color {
	return ColorFromXY(b.ColorX, b.ColorY)
}

// bulbShape is one candidate of the structural dispatch: the keys that must
// all be present, and the decoder for the matching variant.
type bulbShape struct {
	kind     BulbKind
	required []string
	decode   func(p props) (Bulb, error)
}

// bulbShapes is ordered most specific first, so a payload carrying the
// richer fields is never taken for a plainer variant.
var bulbShapes = []bulbShape{
	{KindRgbXY, []string{keyOn, keyBrightness, keyColorX, keyColorY}, decodeRgbXY},
	{KindColdWarmHex, []string{keyOn, keyBrightness, keyColorHex}, decodeColdWarmHex},
	{KindDriver, []string{keyOn, keyBrightness}, decodeDriver},
}

// DecodeBulb resolves the variant of a single bulb object by the fields it
// carries.
func DecodeBulb(raw []byte) (Bulb, error) {
	p, err := parseProps(raw)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	b, err := resolveBulb(p)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	return b, nil
}

func resolveBulb(p props) (Bulb, error) {
	if p.has(keyColorX) != p.has(keyColorY) {
		return nil, fmt.Errorf("bulb carries only half of the xy pair %q/%q", keyColorX, keyColorY)
	}
	for _, shape := range bulbShapes {
		if !p.hasAll(shape.required...) {
			continue
		}
		b, err := shape.decode(p)
		if err != nil {
			return nil, fmt.Errorf("%s bulb: %w", shape.kind, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("bulb matches no known shape, need at least %q and %q", keyOn, keyBrightness)
}

func decodeDriver(p props) (Bulb, error) {
	b := &Driver{}
	if err := p.decode(b, keyOn, keyBrightness); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeColdWarmHex(p props) (Bulb, error) {
	b := &ColdWarmHex{}
	if err := p.decode(b, keyOn, keyBrightness, keyColorHex); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeRgbXY(p props) (Bulb, error) {
	// The colour hex of an xy bulb is optional: a string outside the preset
	// palette (set through xy) is dropped rather than failing the bulb.
	hex := p[keyColorHex]
	delete(p, keyColorHex)

	b := &RgbXY{}
	if err := p.decode(b, keyOn, keyBrightness, keyColorX, keyColorY); err != nil {
		return nil, err
	}
	if hex != nil {
		var s string
		if err := json.Unmarshal(hex, &s); err != nil {
			return nil, fmt.Errorf("field %q: %w", keyColorHex, err)
		}
		if c, err := ParseRgbColor(s); err == nil {
			b.ColorHex = &c
		}
	}
	return b, nil
}

func decodeBulbs(raw []json.RawMessage) ([]Bulb, error) {
	bulbs := make([]Bulb, 0, len(raw))
	for i, r := range raw {
		p, err := parseProps(r)
		if err != nil {
			return nil, fmt.Errorf("bulb %d: %w", i, err)
		}
		b, err := resolveBulb(p)
		if err != nil {
			return nil, fmt.Errorf("bulb %d: %w", i, err)
		}
		bulbs = append(bulbs, b)
	}
	return bulbs, nil
}
