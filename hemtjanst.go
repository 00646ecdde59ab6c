// Package tradfrigw exposes the lights, outlets and groups of a TRÅDFRI
// gateway as hemtjanst devices.
package tradfrigw

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/pion/logging"
	"lib.hemtjan.st/client"
	"lib.hemtjan.st/device"

	"hemtjan.st/tradfrigw/tradfri"
)

// Gateway is the part of a connected gateway client the bridge uses.
// *tradfri.Connected implements it.
type Gateway interface {
	Devices() *tradfri.DeviceIterator
	Groups() *tradfri.GroupIterator
	FetchDevice(ctx context.Context, id tradfri.ResourceID) (tradfri.Device, error)
	FetchGroup(ctx context.Context, id tradfri.ResourceID) (*tradfri.Group, error)
	ApplyDeviceUpdate(ctx context.Context, id tradfri.ResourceID, upd tradfri.DeviceUpdate) error
	ApplyGroupUpdate(ctx context.Context, id tradfri.ResourceID, upd tradfri.GroupUpdate) error
	ObserveDevice(ctx context.Context, id tradfri.ResourceID, cb func(tradfri.Device, error) error) error
}

type Config struct {
	SkipGroups bool
	SkipBulbs  bool

	// Observe subscribes to state changes of every light and outlet.
	Observe bool

	LoggerFactory logging.LoggerFactory
}

// publisher is the hemtjanst side of one bridged device.
type publisher interface {
	Update(feature, value string) error
}

type newDeviceFunc func(info *device.Info, onSet func(feature, value string)) (publisher, error)

type Bridge struct {
	sync.RWMutex
	gw        Gateway
	cfg       Config
	newDevice newDeviceFunc
	devices   map[string]*bridgeDevice
	log       logging.LeveledLogger
	ctx       context.Context
}

// NewBridge creates a bridge publishing to transport. Nothing is published
// until Start.
func NewBridge(gw Gateway, transport device.Transport, cfg Config) *Bridge {
	b := newBridge(gw, cfg)
	b.newDevice = func(info *device.Info, onSet func(feature, value string)) (publisher, error) {
		dev, err := client.NewDevice(info, transport)
		if err != nil {
			return nil, err
		}
		for _, ft := range dev.Features() {
			ft := ft
			_ = ft.OnSetFunc(func(val string) {
				onSet(ft.Name(), val)
			})
		}
		return &hemtjanstDevice{dev: dev}, nil
	}
	return b
}

func newBridge(gw Gateway, cfg Config) *Bridge {
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Bridge{
		gw:      gw,
		cfg:     cfg,
		devices: map[string]*bridgeDevice{},
		log:     lf.NewLogger("tradfrigw"),
		ctx:     context.Background(),
	}
}

type hemtjanstDevice struct {
	dev client.Device
}

func (h *hemtjanstDevice) Update(feature, value string) error {
	return h.dev.Feature(feature).Update(value)
}

func topicFor(t string, id tradfri.ResourceID) string {
	return "light/" + t + "-" + strconv.FormatUint(uint64(id), 10)
}

func topicForPlug(t string, id tradfri.ResourceID) string {
	return "outlet/" + t + "-" + strconv.FormatUint(uint64(id), 10)
}

// Start publishes every supported device and group and then serves feature
// changes until ctx is done. It fails only if the gateway cannot be
// enumerated.
func (b *Bridge) Start(ctx context.Context) error {
	b.Lock()
	b.ctx = ctx
	b.Unlock()

	it := b.gw.Devices()
	for it.Next(ctx) {
		dev, err := it.Value()
		if err != nil {
			b.log.Warnf("skipping device %d: %v", it.ID(), err)
			continue
		}
		b.addDevice(dev)
	}
	if err := it.Err(); err != nil {
		return err
	}

	if !b.cfg.SkipGroups {
		git := b.gw.Groups()
		for git.Next(ctx) {
			g, err := git.Value()
			if err != nil {
				b.log.Warnf("skipping group %d: %v", git.ID(), err)
				continue
			}
			b.addGroup(g)
		}
		if err := git.Err(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	if b.cfg.Observe {
		for _, d := range b.observable() {
			wg.Add(1)
			go func(d *bridgeDevice) {
				defer wg.Done()
				b.observe(ctx, d)
			}(d)
		}
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (b *Bridge) addDevice(dev tradfri.Device) {
	var d *bridgeDevice
	switch v := dev.(type) {
	case *tradfri.Light:
		if b.cfg.SkipBulbs {
			return
		}
		d = &bridgeDevice{bridge: b, topic: topicFor("bulb", v.ID), id: v.ID, light: v}
	case *tradfri.Outlet:
		d = &bridgeDevice{bridge: b, topic: topicForPlug("plug", v.ID), id: v.ID, outlet: v}
	default:
		b.log.Debugf("ignoring %s", dev.Type())
		return
	}
	b.register(d)
}

func (b *Bridge) addGroup(g *tradfri.Group) {
	d := &bridgeDevice{bridge: b, topic: topicFor("grp", g.ID), id: g.ID, group: g}
	b.register(d)
}

func (b *Bridge) register(d *bridgeDevice) {
	b.Lock()
	if _, ok := b.devices[d.topic]; ok {
		b.Unlock()
		return
	}
	b.devices[d.topic] = d
	b.Unlock()

	if err := d.start(); err != nil {
		b.log.Errorf("[%s] error creating device: %v", d.topic, err)
		return
	}
	b.log.Infof("[%s] started", d.topic)
}

// Status is the published state of one bridged device.
type Status struct {
	Topic    string
	Name     string
	Type     string
	Features map[string]string
}

// Status returns every bridged device ordered by topic.
func (b *Bridge) Status() []Status {
	b.RLock()
	devs := make([]*bridgeDevice, 0, len(b.devices))
	for _, d := range b.devices {
		devs = append(devs, d)
	}
	b.RUnlock()

	out := make([]Status, 0, len(devs))
	for _, d := range devs {
		out = append(out, d.status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

func (b *Bridge) device(topic string) *bridgeDevice {
	b.RLock()
	defer b.RUnlock()
	return b.devices[topic]
}

func (b *Bridge) observable() []*bridgeDevice {
	b.RLock()
	defer b.RUnlock()
	var out []*bridgeDevice
	for _, d := range b.devices {
		if d.group == nil {
			out = append(out, d)
		}
	}
	return out
}

func (b *Bridge) observe(ctx context.Context, d *bridgeDevice) {
	err := b.gw.ObserveDevice(ctx, d.id, func(dev tradfri.Device, err error) error {
		if err != nil {
			b.log.Warnf("[%s] bad notification: %v", d.topic, err)
			return nil
		}
		d.replace(dev)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		b.log.Errorf("[%s] observation ended: %v", d.topic, err)
	}
}

func (b *Bridge) context() context.Context {
	b.RLock()
	defer b.RUnlock()
	return b.ctx
}
