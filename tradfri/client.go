package tradfri

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pion/logging"

	"hemtjan.st/tradfrigw/transport"
)

// DefaultAuthTimeout bounds the pairing exchange when Config.AuthTimeout is
// zero.
const DefaultAuthTimeout = 10 * time.Second

// Endpoint is the gateway address and the identifier this client uses
// towards it.
type Endpoint struct {
	// Address is host or host:port. The port defaults to transport.DefaultPort.
	Address    string
	Identifier string
}

// Credentials are an identifier and the pre-shared key the gateway issued
// for it.
type Credentials struct {
	Identifier string
	PSK        string
}

type Config struct {
	// Dialer opens the secure channel. If nil, DTLS is used.
	Dialer transport.Dialer

	// AuthTimeout bounds the pairing exchange. Zero means DefaultAuthTimeout.
	AuthTimeout time.Duration

	// RequestTimeout bounds every request. Zero means no bound.
	RequestTimeout time.Duration

	LoggerFactory logging.LoggerFactory
}

func (c Config) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory != nil {
		return c.LoggerFactory
	}
	return logging.NewDefaultLoggerFactory()
}

func (c Config) sessionConfig() transport.Config {
	return transport.Config{
		Dialer:        c.Dialer,
		Timeout:       c.RequestTimeout,
		LoggerFactory: c.LoggerFactory,
	}
}

// GenerateIdentifier derives a client identifier from now.
func GenerateIdentifier(now time.Time) string {
	return "user" + strconv.FormatInt(now.Unix(), 10)
}

// WithCode is a client holding a pairing code. It can only Connect.
type WithCode struct {
	endpoint Endpoint
	code     string
	cfg      Config
}

// NewWithCode prepares pairing with the code printed on the gateway, under a
// freshly generated identifier.
func NewWithCode(address, code string, cfg Config) *WithCode {
	return &WithCode{
		endpoint: Endpoint{Address: address, Identifier: GenerateIdentifier(time.Now())},
		code:     code,
		cfg:      cfg,
	}
}

func (c *WithCode) Endpoint() Endpoint { return c.endpoint }

// Connect obtains a key for the endpoint's identifier and connects with it.
func (c *WithCode) Connect(ctx context.Context) (*Connected, error) {
	timeout := c.cfg.AuthTimeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	psk, err := transport.Authenticate(ctx, c.endpoint.Address, c.endpoint.Identifier, c.code, transport.Config{
		Dialer:        c.cfg.Dialer,
		Timeout:       timeout,
		LoggerFactory: c.cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	next := &WithCredentials{
		endpoint: c.endpoint,
		psk:      psk,
		cfg:      c.cfg,
	}
	return next.Connect(ctx)
}

// WithCredentials is a client holding a key. It can only Connect.
type WithCredentials struct {
	endpoint Endpoint
	psk      string
	cfg      Config
}

func NewWithCredentials(address string, creds Credentials, cfg Config) *WithCredentials {
	return &WithCredentials{
		endpoint: Endpoint{Address: address, Identifier: creds.Identifier},
		psk:      creds.PSK,
		cfg:      cfg,
	}
}

func (c *WithCredentials) Endpoint() Endpoint { return c.endpoint }

// Connect opens the session every Connected operation runs on.
func (c *WithCredentials) Connect(ctx context.Context) (*Connected, error) {
	s, err := transport.Open(ctx, c.endpoint.Address, c.endpoint.Identifier, []byte(c.psk), c.cfg.sessionConfig())
	if err != nil {
		return nil, err
	}
	log := c.cfg.loggerFactory().NewLogger("tradfri")
	log.Infof("connected to %s as %s", c.endpoint.Address, c.endpoint.Identifier)
	return &Connected{
		endpoint: c.endpoint,
		psk:      c.psk,
		cfg:      c.cfg,
		session:  s,
		log:      log,
	}, nil
}

// Connected is a client with a live session. Its operations share that
// session and so run one at a time. A failed operation does not reconnect.
type Connected struct {
	endpoint Endpoint
	psk      string
	cfg      Config
	session  *transport.Session
	log      logging.LeveledLogger
}

func (c *Connected) Endpoint() Endpoint { return c.endpoint }

// Credentials returns the identifier and key in use. Callers that want to
// skip pairing next time have to store them.
func (c *Connected) Credentials() Credentials {
	return Credentials{Identifier: c.endpoint.Identifier, PSK: c.psk}
}

func (c *Connected) Close() error {
	return c.session.Close()
}

func (c *Connected) ListDeviceIDs(ctx context.Context) ([]ResourceID, error) {
	b, err := c.session.Get(ctx, DeviceEndpoint)
	if err != nil {
		return nil, err
	}
	return decodeIDs(b)
}

func (c *Connected) FetchDevice(ctx context.Context, id ResourceID) (Device, error) {
	b, err := c.session.Get(ctx, devicePath(id))
	if err != nil {
		return nil, err
	}
	dev, err := DecodeDevice(b)
	if err != nil {
		return nil, err
	}
	c.bind(dev)
	return dev, nil
}

// FetchLight fetches id and fails with UnexpectedResourceKindError if it is
// not a light.
func (c *Connected) FetchLight(ctx context.Context, id ResourceID) (*Light, error) {
	dev, err := c.FetchDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	l, ok := dev.(*Light)
	if !ok {
		return nil, &UnexpectedResourceKindError{Expected: TypeLight.String(), Got: dev.Type().String()}
	}
	return l, nil
}

func (c *Connected) FetchOutlet(ctx context.Context, id ResourceID) (*Outlet, error) {
	dev, err := c.FetchDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	o, ok := dev.(*Outlet)
	if !ok {
		return nil, &UnexpectedResourceKindError{Expected: TypeOutlet.String(), Got: dev.Type().String()}
	}
	return o, nil
}

func (c *Connected) ListGroupIDs(ctx context.Context) ([]ResourceID, error) {
	b, err := c.session.Get(ctx, GroupEndpoint)
	if err != nil {
		return nil, err
	}
	return decodeIDs(b)
}

func (c *Connected) FetchGroup(ctx context.Context, id ResourceID) (*Group, error) {
	b, err := c.session.Get(ctx, groupPath(id))
	if err != nil {
		return nil, err
	}
	g, err := DecodeGroup(b)
	if err != nil {
		return nil, err
	}
	g.gw = c
	return g, nil
}

func (c *Connected) ApplyDeviceUpdate(ctx context.Context, id ResourceID, upd DeviceUpdate) error {
	return c.put(ctx, devicePath(id), upd)
}

func (c *Connected) ApplyGroupUpdate(ctx context.Context, id ResourceID, upd GroupUpdate) error {
	return c.put(ctx, groupPath(id), upd)
}

func (c *Connected) put(ctx context.Context, path string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding update for %s: %w", path, err)
	}
	c.log.Debugf("PUT %s: %s", path, string(b))
	return c.session.Put(ctx, path, b)
}

// Devices enumerates every device on the gateway over the client's session.
func (c *Connected) Devices() *DeviceIterator {
	return newIterator(c.ListDeviceIDs, c.FetchDevice)
}

// Groups enumerates every group on the gateway over the client's session.
func (c *Connected) Groups() *GroupIterator {
	return newIterator(c.ListGroupIDs, c.FetchGroup)
}

func (c *Connected) GatewayInfo(ctx context.Context) (*GatewayInfo, error) {
	b, err := c.session.Get(ctx, GatewayEndpoint)
	if err != nil {
		return nil, err
	}
	return DecodeGatewayInfo(b)
}

func (c *Connected) Notifications(ctx context.Context) ([]Notification, error) {
	b, err := c.session.Get(ctx, NotificationEndpoint)
	if err != nil {
		return nil, err
	}
	return DecodeNotifications(b)
}

func (c *Connected) ListSceneIDs(ctx context.Context, group ResourceID) ([]ResourceID, error) {
	b, err := c.session.Get(ctx, scenePath(group))
	if err != nil {
		return nil, err
	}
	return decodeIDs(b)
}

func (c *Connected) FetchScene(ctx context.Context, group, id ResourceID) (*Scene, error) {
	b, err := c.session.Get(ctx, scenePath(group)+"/"+id.String())
	if err != nil {
		return nil, err
	}
	return DecodeScene(group, b)
}

func (c *Connected) bind(dev Device) {
	switch d := dev.(type) {
	case *Light:
		d.gw = c
	case *Outlet:
		d.gw = c
	}
}
