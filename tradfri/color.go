package tradfri

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColdWarmColor is one of the five presets of white spectrum bulbs, carried
// on the wire as a hex string.
type ColdWarmColor string

const (
	ColorGlow       ColdWarmColor = "efd275"
	ColorWarm       ColdWarmColor = "f1e0b5"
	ColorLightWarm  ColdWarmColor = "f2eccf"
	ColorLightWhite ColdWarmColor = "f3f3e3"
	ColorWhite      ColdWarmColor = "f5faf6"
)

var coldWarmColors = map[ColdWarmColor]struct {
	name  string
	mired int
}{
	ColorGlow:       {"glow", 454},
	ColorWarm:       {"warm", 400},
	ColorLightWarm:  {"light warm", 370},
	ColorLightWhite: {"light white", 303},
	ColorWhite:      {"white", 250},
}

// RgbColor is one of the presets of colour bulbs.
type RgbColor string

const (
	RgbBlue            RgbColor = "4a418a"
	RgbLightBlue       RgbColor = "6c83ba"
	RgbSaturatedPurple RgbColor = "8f2686"
	RgbLime            RgbColor = "a9d62b"
	RgbLightPurple     RgbColor = "c984bb"
	RgbYellow          RgbColor = "d6e44b"
	RgbSaturatedPink   RgbColor = "d9337c"
	RgbDarkPeach       RgbColor = "da5d41"
	RgbSaturatedRed    RgbColor = "dc4b31"
	RgbColdSky         RgbColor = "dcf0f8"
	RgbPink            RgbColor = "e491af"
	RgbPeach           RgbColor = "e57345"
	RgbWarmAmber       RgbColor = "e78834"
	RgbLightPink       RgbColor = "e8bedd"
	RgbCoolDaylight    RgbColor = "eaf6fb"
	RgbCandlelight     RgbColor = "ebb63e"
	RgbWarmGlow        RgbColor = "efd275"
	RgbWarmWhite       RgbColor = "f1e0b5"
	RgbSunrise         RgbColor = "f2eccf"
	RgbCoolWhite       RgbColor = "f5faf6"
)

var rgbColors = map[RgbColor]string{
	RgbBlue:            "blue",
	RgbLightBlue:       "light blue",
	RgbSaturatedPurple: "saturated purple",
	RgbLime:            "lime",
	RgbLightPurple:     "light purple",
	RgbYellow:          "yellow",
	RgbSaturatedPink:   "saturated pink",
	RgbDarkPeach:       "dark peach",
	RgbSaturatedRed:    "saturated red",
	RgbColdSky:         "cold sky",
	RgbPink:            "pink",
	RgbPeach:           "peach",
	RgbWarmAmber:       "warm amber",
	RgbLightPink:       "light pink",
	RgbCoolDaylight:    "cool daylight",
	RgbCandlelight:     "candlelight",
	RgbWarmGlow:        "warm glow",
	RgbWarmWhite:       "warm white",
	RgbSunrise:         "sunrise",
	RgbCoolWhite:       "cool white",
}

func ParseColdWarmColor(hex string) (ColdWarmColor, error) {
	c := ColdWarmColor(strings.ToLower(strings.TrimPrefix(hex, "#")))
	if _, ok := coldWarmColors[c]; !ok {
		return "", fmt.Errorf("unknown cold/warm colour %q", hex)
	}
	return c, nil
}

func (c ColdWarmColor) String() string {
	if v, ok := coldWarmColors[c]; ok {
		return v.name
	}
	return string(c)
}

func (c ColdWarmColor) Hex() string {
	return string(c)
}

// Mired is the approximate colour temperature of the preset.
func (c ColdWarmColor) Mired() int {
	return coldWarmColors[c].mired
}

func (c ColdWarmColor) Color() colorful.Color {
	col, _ := colorful.Hex("#" + string(c))
	return col
}

// ColdWarmFromMired returns the preset closest to a colour temperature.
func ColdWarmFromMired(mired int) ColdWarmColor {
	best, dist := ColorWhite, math.MaxInt32
	for c, v := range coldWarmColors {
		d := v.mired - mired
		if d < 0 {
			d = -d
		}
		if d < dist {
			best, dist = c, d
		}
	}
	return best
}

func (c *ColdWarmColor) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseColdWarmColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func ParseRgbColor(hex string) (RgbColor, error) {
	c := RgbColor(strings.ToLower(strings.TrimPrefix(hex, "#")))
	if _, ok := rgbColors[c]; !ok {
		return "", fmt.Errorf("unknown rgb colour %q", hex)
	}
	return c, nil
}

func (c RgbColor) String() string {
	if v, ok := rgbColors[c]; ok {
		return v
	}
	return string(c)
}

func (c RgbColor) Hex() string {
	return string(c)
}

func (c RgbColor) Color() colorful.Color {
	col, _ := colorful.Hex("#" + string(c))
	return col
}

func (c *RgbColor) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRgbColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// XYFromColor converts a colour to the gateway's 0-65535 CIE xy scale.
func XYFromColor(col color.Color) (x, y uint32) {
	var c colorful.Color
	var ok bool
	if c, ok = col.(colorful.Color); !ok {
		r, g, b, _ := col.RGBA()
		c = colorful.Color{R: float64(r) / 65535, G: float64(g) / 65535, B: float64(b) / 65535}
	}
	fx, fy, _ := c.Xyy()
	return uint32(fx*65535 + 0.5), uint32(fy*65535 + 0.5)
}

// ColorFromXY converts gateway xy coordinates to an RGB colour at full
// luminance.
func ColorFromXY(x, y uint32) colorful.Color {
	return colorful.Xyy(float64(x)/65535, float64(y)/65535, 1).Clamped()
}
