package tradfri

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Relay struct {
	On     YesNo `json:"5850"`
	Dimmer uint8 `json:"5851"`
}

// Outlet is a smart plug. It has one relay in practice.
type Outlet struct {
	ID        ResourceID
	Name      string
	Info      DeviceInfo
	CreatedAt time.Time
	LastSeen  time.Time
	Reachable bool
	Relays    []Relay

	gw *Connected
}

func (*Outlet) Type() DeviceType { return TypeOutlet }

func decodeOutlet(p props) (*Outlet, error) {
	h, err := decodeHeader(p)
	if err != nil {
		return nil, err
	}
	if err := p.require(keyOutlets); err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(p[keyOutlets], &raw); err != nil {
		return nil, fmt.Errorf("relays: %w", err)
	}
	relays := make([]Relay, 0, len(raw))
	for i, r := range raw {
		rp, err := parseProps(r)
		if err != nil {
			return nil, fmt.Errorf("relay %d: %w", i, err)
		}
		relay := Relay{}
		if err := rp.decode(&relay, keyOn); err != nil {
			return nil, fmt.Errorf("relay %d: %w", i, err)
		}
		relays = append(relays, relay)
	}
	return &Outlet{
		ID:        h.ID,
		Name:      h.Name,
		Info:      h.Info,
		CreatedAt: h.createdAt(),
		LastSeen:  h.lastSeen(),
		Reachable: h.Reachable.Bool(),
		Relays:    relays,
	}, nil
}

func (o *Outlet) IsOn() bool {
	for _, r := range o.Relays {
		if r.On.Bool() {
			return true
		}
	}
	return false
}

func (o *Outlet) On(ctx context.Context) error  { return o.set(ctx, true) }
func (o *Outlet) Off(ctx context.Context) error { return o.set(ctx, false) }

func (o *Outlet) set(ctx context.Context, on bool) error {
	if o.gw == nil {
		return ErrDetached
	}
	if err := o.gw.ApplyDeviceUpdate(ctx, o.ID, BuildOutletUpdate(o, on)); err != nil {
		return err
	}
	return o.Refresh(ctx)
}

func (o *Outlet) Refresh(ctx context.Context) error {
	if o.gw == nil {
		return ErrDetached
	}
	dev, err := o.gw.FetchDevice(ctx, o.ID)
	if err != nil {
		return err
	}
	fresh, ok := dev.(*Outlet)
	if !ok {
		return &UnexpectedResourceKindError{Expected: TypeOutlet.String(), Got: dev.Type().String()}
	}
	*o = *fresh
	return nil
}
