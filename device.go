package tradfrigw

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"lib.hemtjan.st/device"
	"lib.hemtjan.st/feature"

	"hemtjan.st/tradfrigw/tradfri"
)

const (
	lTypeNone = iota
	lTypeTemp
	lTypeRgb
)

// bridgeDevice is one light, outlet or group published to hemtjanst. Exactly
// one of light, outlet and group is set.
type bridgeDevice struct {
	sync.Mutex
	bridge *Bridge
	topic  string
	id     tradfri.ResourceID

	light  *tradfri.Light
	outlet *tradfri.Outlet
	group  *tradfri.Group

	pub            publisher
	features       []string
	lastHue        *int
	lastSaturation *int
}

func lightType(l *tradfri.Light) int {
	lType := lTypeNone
	for _, b := range l.Bulbs {
		switch b.(type) {
		case *tradfri.RgbXY:
			return lTypeRgb
		case *tradfri.ColdWarmHex:
			lType = lTypeTemp
		}
	}
	return lType
}

func (h *bridgeDevice) info() *device.Info {
	dev := &device.Info{
		Topic:        h.topic,
		SerialNumber: h.id.String(),
		Features:     map[string]*feature.Info{},
	}
	lType := lTypeNone
	switch {
	case h.light != nil:
		dev.Name = h.light.Name
		dev.Manufacturer = h.light.Info.Manufacturer
		dev.Model = h.light.Info.Model
		dev.Type = "lightbulb"
		dev.Features["on"] = &feature.Info{}
		dev.Features["brightness"] = &feature.Info{Min: 0, Max: 100, Step: 1}
		lType = lightType(h.light)
	case h.outlet != nil:
		dev.Name = h.outlet.Name
		dev.Manufacturer = h.outlet.Info.Manufacturer
		dev.Model = h.outlet.Info.Model
		dev.Type = "outlet"
		dev.Features["on"] = &feature.Info{}
		dev.Features["outletInUse"] = &feature.Info{}
	case h.group != nil:
		dev.Name = h.group.Name
		dev.Manufacturer = "IKEA"
		dev.Model = "Trådfri Group"
		dev.Type = "lightbulb"
		dev.Features["on"] = &feature.Info{}
		dev.Features["brightness"] = &feature.Info{Min: 0, Max: 100, Step: 1}
	}

	switch lType {
	case lTypeTemp:
		dev.Features["colorTemperature"] = &feature.Info{Min: 250, Max: 454, Step: 1}
	case lTypeRgb:
		dev.Features["colorTemperature"] = &feature.Info{Min: 250, Max: 454, Step: 1}
		dev.Features["hue"] = &feature.Info{Min: 0, Max: 360, Step: 1}
		dev.Features["saturation"] = &feature.Info{Min: 0, Max: 100, Step: 1}
		dev.Features["color"] = &feature.Info{}
	}
	return dev
}

func (h *bridgeDevice) start() error {
	h.Lock()
	defer h.Unlock()
	info := h.info()
	pub, err := h.bridge.newDevice(info, h.onSet)
	if err != nil {
		return err
	}
	h.pub = pub
	for name := range info.Features {
		h.features = append(h.features, name)
	}
	h.publishAll()
	return nil
}

func (h *bridgeDevice) onSet(feature, value string) {
	h.bridge.log.Debugf("[%s] new suggested value for %s: %s", h.topic, feature, value)
	if err := h.set(feature, value); err != nil {
		h.bridge.log.Warnf("[%s] setting %s to %q: %v", h.topic, feature, value, err)
	}
}

// set applies a hemtjanst feature change to the gateway and republishes the
// resulting state.
func (h *bridgeDevice) set(feature, value string) error {
	h.Lock()
	defer h.Unlock()
	ctx := h.bridge.context()
	gw := h.bridge.gw

	if h.group != nil {
		upd, err := groupUpdate(feature, value)
		if err != nil {
			return err
		}
		if err := gw.ApplyGroupUpdate(ctx, h.id, upd); err != nil {
			return err
		}
		g, err := gw.FetchGroup(ctx, h.id)
		if err != nil {
			return err
		}
		h.group = g
		h.publishAll()
		return nil
	}

	var upd tradfri.DeviceUpdate
	switch {
	case h.light != nil:
		ch, ok, err := h.lightChange(feature, value)
		if err != nil || !ok {
			return err
		}
		if upd, err = tradfri.BuildLightUpdate(h.light, ch); err != nil {
			return err
		}
	case h.outlet != nil:
		if feature != "on" {
			return fmt.Errorf("unsupported feature %s", feature)
		}
		upd = tradfri.BuildOutletUpdate(h.outlet, parseOn(value))
	}
	if err := gw.ApplyDeviceUpdate(ctx, h.id, upd); err != nil {
		return err
	}
	dev, err := gw.FetchDevice(ctx, h.id)
	if err != nil {
		return err
	}
	h.setState(dev)
	h.publishAll()
	return nil
}

func parseOn(value string) bool {
	return value != "0" && strings.ToLower(value) != "false"
}

func groupUpdate(feature, value string) (tradfri.GroupUpdate, error) {
	switch feature {
	case "on":
		return tradfri.GroupUpdate{On: tradfri.OnOff(parseOn(value))}, nil
	case "brightness":
		dim, err := strconv.Atoi(value)
		if err != nil {
			return tradfri.GroupUpdate{}, err
		}
		level := tradfri.BrightnessFromPercent(dim)
		return tradfri.GroupUpdate{Brightness: &level}, nil
	}
	return tradfri.GroupUpdate{}, fmt.Errorf("unsupported feature %s", feature)
}

// lightChange reports false when more input is needed, as with hue waiting
// for saturation.
func (h *bridgeDevice) lightChange(feature, value string) (tradfri.LightChange, bool, error) {
	ch := tradfri.LightChange{}
	switch feature {
	case "on":
		on := parseOn(value)
		ch.On = &on
	case "brightness":
		dim, err := strconv.Atoi(value)
		if err != nil {
			return ch, false, err
		}
		level := tradfri.BrightnessFromPercent(dim)
		ch.Brightness = &level
	case "colorTemperature":
		mired, err := strconv.Atoi(value)
		if err != nil {
			return ch, false, err
		}
		ch.ColorHex = tradfri.ColdWarmFromMired(mired).Hex()
	case "color":
		ch.ColorHex = strings.TrimPrefix(value, "#")
	case "hue", "saturation":
		v, err := strconv.Atoi(value)
		if err != nil {
			return ch, false, err
		}
		if feature == "hue" {
			h.lastHue = &v
		} else {
			h.lastSaturation = &v
		}
		if h.lastHue == nil || h.lastSaturation == nil {
			return ch, false, nil
		}
		c := colorful.Hsv(float64(*h.lastHue), float64(*h.lastSaturation)/100, 1)
		x, y := tradfri.XYFromColor(c)
		ch.ColorX, ch.ColorY = &x, &y
	default:
		return ch, false, fmt.Errorf("unsupported feature %s", feature)
	}
	return ch, true, nil
}

// replace takes a state reported by the gateway and republishes it.
func (h *bridgeDevice) replace(dev tradfri.Device) {
	h.Lock()
	defer h.Unlock()
	h.setState(dev)
	h.publishAll()
}

func (h *bridgeDevice) setState(dev tradfri.Device) {
	switch v := dev.(type) {
	case *tradfri.Light:
		if h.light != nil {
			h.light = v
		}
	case *tradfri.Outlet:
		if h.outlet != nil {
			h.outlet = v
		}
	}
}

func (h *bridgeDevice) publishAll() {
	if h.pub == nil {
		return
	}
	for _, name := range h.features {
		val, err := h.featureValue(name)
		if err != nil {
			continue
		}
		if err := h.pub.Update(name, val); err != nil {
			h.bridge.log.Warnf("[%s] error publishing %s: %v", h.topic, name, err)
		}
	}
}

func (h *bridgeDevice) status() Status {
	h.Lock()
	defer h.Unlock()
	info := h.info()
	st := Status{Topic: h.topic, Name: info.Name, Type: info.Type, Features: map[string]string{}}
	for name := range info.Features {
		if v, err := h.featureValue(name); err == nil {
			st.Features[name] = v
		}
	}
	return st
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (h *bridgeDevice) featureValue(feature string) (string, error) {
	switch {
	case h.group != nil:
		switch feature {
		case "on":
			return boolValue(h.group.On), nil
		case "brightness":
			return strconv.Itoa(tradfri.PercentFromBrightness(h.group.Brightness)), nil
		}
	case h.outlet != nil:
		switch feature {
		case "on":
			return boolValue(h.outlet.IsOn()), nil
		case "outletInUse":
			// Currently no way of detecting
			return "1", nil
		}
	case h.light != nil:
		return lightFeature(h.light, feature)
	}
	return "", fmt.Errorf("device doesn't support %s", feature)
}

func lightFeature(l *tradfri.Light, feature string) (string, error) {
	switch feature {
	case "on":
		return boolValue(l.IsOn()), nil
	case "brightness":
		return strconv.Itoa(tradfri.PercentFromBrightness(l.Brightness())), nil
	}
	if len(l.Bulbs) == 0 {
		return "", fmt.Errorf("device doesn't support %s", feature)
	}
	switch b := l.Bulbs[0].(type) {
	case *tradfri.ColdWarmHex:
		if feature == "colorTemperature" {
			if b.ColorTemperature != nil {
				return strconv.Itoa(int(*b.ColorTemperature)), nil
			}
			return strconv.Itoa(b.ColorHex.Mired()), nil
		}
	case *tradfri.RgbXY:
		c := b.Color()
		switch feature {
		case "colorTemperature":
			if b.ColorTemperature != nil {
				return strconv.Itoa(int(*b.ColorTemperature)), nil
			}
			return "", fmt.Errorf("colour bulb has no temperature set")
		case "hue":
			hue, _, _ := c.Hsv()
			return strconv.Itoa(int(hue)), nil
		case "saturation":
			_, sat, _ := c.Hsv()
			return strconv.Itoa(int(sat * 100)), nil
		case "color":
			return c.Hex(), nil
		}
	}
	return "", fmt.Errorf("device doesn't support %s", feature)
}
