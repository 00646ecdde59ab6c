package tradfri

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"time"
)

// Light is a lamp with one or more bulbs. Values returned by a Connected
// gateway are bound to it, and the mutators apply the change and refresh
// the light in place.
type Light struct {
	ID        ResourceID
	Name      string
	Info      DeviceInfo
	CreatedAt time.Time
	LastSeen  time.Time
	Reachable bool
	Bulbs     []Bulb

	gw *Connected
}

func (*Light) Type() DeviceType { return TypeLight }

func decodeLight(p props) (*Light, error) {
	h, err := decodeHeader(p)
	if err != nil {
		return nil, err
	}
	if err := p.require(keyLights); err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(p[keyLights], &raw); err != nil {
		return nil, fmt.Errorf("bulbs: %w", err)
	}
	bulbs, err := decodeBulbs(raw)
	if err != nil {
		return nil, err
	}
	return &Light{
		ID:        h.ID,
		Name:      h.Name,
		Info:      h.Info,
		CreatedAt: h.createdAt(),
		LastSeen:  h.lastSeen(),
		Reachable: h.Reachable.Bool(),
		Bulbs:     bulbs,
	}, nil
}

// IsOn reports whether any bulb is lit.
func (l *Light) IsOn() bool {
	for _, b := range l.Bulbs {
		if b.IsOn() {
			return true
		}
	}
	return false
}

// Brightness of the first bulb, 0 for a light without bulbs.
func (l *Light) Brightness() uint8 {
	if len(l.Bulbs) == 0 {
		return 0
	}
	return l.Bulbs[0].Level()
}

func (l *Light) On(ctx context.Context) error {
	on := true
	return l.Update(ctx, LightChange{On: &on})
}

func (l *Light) Off(ctx context.Context) error {
	off := false
	return l.Update(ctx, LightChange{On: &off})
}

func (l *Light) SetBrightness(ctx context.Context, level uint8) error {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	return l.Update(ctx, LightChange{Brightness: &level})
}

// SetColorHex sets a palette colour. Cold/warm bulbs accept only their five
// presets; colour bulbs fall back to the xy coordinates of any other hex.
func (l *Light) SetColorHex(ctx context.Context, hex string) error {
	return l.Update(ctx, LightChange{ColorHex: hex})
}

func (l *Light) SetColorXY(ctx context.Context, x, y uint32) error {
	return l.Update(ctx, LightChange{ColorX: &x, ColorY: &y})
}

func (l *Light) SetColor(ctx context.Context, c color.Color) error {
	x, y := XYFromColor(c)
	return l.SetColorXY(ctx, x, y)
}

// Update applies ch to every bulb and refreshes l from the gateway.
func (l *Light) Update(ctx context.Context, ch LightChange) error {
	if l.gw == nil {
		return ErrDetached
	}
	upd, err := BuildLightUpdate(l, ch)
	if err != nil {
		return err
	}
	if err := l.gw.ApplyDeviceUpdate(ctx, l.ID, upd); err != nil {
		return err
	}
	return l.Refresh(ctx)
}

// Refresh replaces every field of l with the gateway's current state.
func (l *Light) Refresh(ctx context.Context) error {
	if l.gw == nil {
		return ErrDetached
	}
	fresh, err := l.gw.FetchLight(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = *fresh
	return nil
}
