package tradfri

import (
	"context"
	"time"
)

// Group is a set of devices switched together.
type Group struct {
	ID         ResourceID
	Name       string
	CreatedAt  time.Time
	On         bool
	Brightness uint8
	// Members is informational. Updates address the whole group.
	Members []ResourceID
	Scene   *ResourceID

	gw *Connected
}

type groupWire struct {
	On         YesNo        `json:"5850"`
	Brightness uint8        `json:"5851"`
	Name       string       `json:"9001"`
	CreatedAt  uint32       `json:"9002"`
	ID         ResourceID   `json:"9003"`
	Members    groupMembers `json:"9018"`
	Scene      *ResourceID  `json:"9039,omitempty"`
}

type groupMembers struct {
	Devices *struct {
		IDs []ResourceID `json:"9003"`
	} `json:"15002,omitempty"`
}

var groupKeys = []string{keyOn, keyBrightness, keyName, keyCreatedAt, keyID, keyMembers}

// DecodeGroup decodes a group resource.
func DecodeGroup(raw []byte) (*Group, error) {
	p, err := parseProps(raw)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	w := groupWire{}
	if err := p.decode(&w, groupKeys...); err != nil {
		return nil, newDecodeError(err, raw)
	}
	g := &Group{
		ID:         w.ID,
		Name:       w.Name,
		CreatedAt:  unixTime(w.CreatedAt),
		On:         w.On.Bool(),
		Brightness: w.Brightness,
		Scene:      w.Scene,
	}
	if w.Members.Devices != nil {
		g.Members = w.Members.Devices.IDs
	}
	return g, nil
}

func (g *Group) SetOn(ctx context.Context, on bool) error {
	return g.Update(ctx, GroupUpdate{On: OnOff(on)})
}

func (g *Group) TurnOn(ctx context.Context) error  { return g.SetOn(ctx, true) }
func (g *Group) TurnOff(ctx context.Context) error { return g.SetOn(ctx, false) }

func (g *Group) SetBrightness(ctx context.Context, level uint8) error {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	return g.Update(ctx, GroupUpdate{Brightness: &level})
}

func (g *Group) SetName(ctx context.Context, name string) error {
	return g.Update(ctx, GroupUpdate{Name: &name})
}

// ActivateScene recalls one of the group's scenes.
func (g *Group) ActivateScene(ctx context.Context, scene ResourceID) error {
	on := Yes
	return g.Update(ctx, GroupUpdate{On: &on, Scene: &scene})
}

// Update applies upd to the group and refreshes g from the gateway.
func (g *Group) Update(ctx context.Context, upd GroupUpdate) error {
	if g.gw == nil {
		return ErrDetached
	}
	if err := g.gw.ApplyGroupUpdate(ctx, g.ID, upd); err != nil {
		return err
	}
	return g.Refresh(ctx)
}

func (g *Group) Refresh(ctx context.Context) error {
	if g.gw == nil {
		return ErrDetached
	}
	fresh, err := g.gw.FetchGroup(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *fresh
	return nil
}
