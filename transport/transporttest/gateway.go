// Package transporttest provides an in-memory gateway for exercising
// sessions and clients without a network.
package transporttest

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/udp/coder"

	"hemtjan.st/tradfrigw/transport"
)

// ErrRejected is returned by Dial when the identity or key does not match.
var ErrRejected = errors.New("handshake rejected")

// Handler answers one request. Returning codes.Empty drops the request
// without a response.
type Handler func(req *transport.Request) (codes.Code, []byte)

// Gateway simulates a gateway reachable through its Dial method.
type Gateway struct {
	sync.Mutex
	// Keys maps accepted identities to their keys. A nil map accepts all.
	Keys map[string]string
	// Separate makes every response arrive as an empty ACK followed by a
	// confirmable separate response.
	Separate bool

	handler   Handler
	requests  []*transport.Request
	acks      int
	dials     []string
	observers map[string][]*observer
	nextID    uint16
}

type observer struct {
	conn  *Conn
	token []byte
}

func NewGateway(h Handler) *Gateway {
	return &Gateway{
		handler:   h,
		observers: map[string][]*observer{},
		nextID:    1000,
	}
}

func (g *Gateway) Dial(ctx context.Context, address, identity string, psk []byte) (transport.Channel, error) {
	g.Lock()
	defer g.Unlock()
	if g.Keys != nil {
		if key, ok := g.Keys[identity]; !ok || key != string(psk) {
			return nil, ErrRejected
		}
	}
	g.dials = append(g.dials, identity)
	return &Conn{
		gw:     g,
		wake:   make(chan struct{}),
		inbox:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}, nil
}

// Requests returns every request received so far, in order.
func (g *Gateway) Requests() []*transport.Request {
	g.Lock()
	defer g.Unlock()
	return append([]*transport.Request(nil), g.requests...)
}

// Dials returns the identities of every accepted dial.
func (g *Gateway) Dials() []string {
	g.Lock()
	defer g.Unlock()
	return append([]string(nil), g.dials...)
}

// Acks returns the number of acknowledgements received from clients.
func (g *Gateway) Acks() int {
	g.Lock()
	defer g.Unlock()
	return g.acks
}

// Observers returns the number of registrations on path.
func (g *Gateway) Observers(path string) int {
	g.Lock()
	defer g.Unlock()
	return len(g.observers[path])
}

// Notify pushes a confirmable notification to every observer of path.
func (g *Gateway) Notify(path string, payload []byte) error {
	g.Lock()
	defer g.Unlock()
	for _, o := range g.observers[path] {
		g.nextID++
		b, err := encode(message.Message{
			Token:     o.token,
			Code:      codes.Content,
			Payload:   payload,
			MessageID: int32(g.nextID),
			Type:      message.Confirmable,
		})
		if err != nil {
			return err
		}
		o.conn.deliver(b)
	}
	return nil
}

func (g *Gateway) handle(c *Conn, data []byte) error {
	codec := transport.Codec{}
	req, err := codec.DecodeRequest(data)
	if err != nil {
		return err
	}

	g.Lock()
	if req.Method == 0 {
		g.acks++
		g.Unlock()
		return nil
	}
	g.requests = append(g.requests, req)
	if req.Observe {
		g.observers[req.Path] = append(g.observers[req.Path], &observer{conn: c, token: req.Token})
	}
	separate := g.Separate
	g.Unlock()

	code, payload := g.handler(req)
	if code == codes.Empty {
		return nil
	}
	if !separate {
		b, err := codec.EncodeResponse(req, code, payload)
		if err != nil {
			return err
		}
		c.deliver(b)
		return nil
	}

	ack, err := encode(message.Message{Code: codes.Empty, MessageID: int32(req.MessageID), Type: message.Acknowledgement})
	if err != nil {
		return err
	}
	c.deliver(ack)
	g.Lock()
	g.nextID++
	mid := g.nextID
	g.Unlock()
	b, err := encode(message.Message{
		Token:     req.Token,
		Code:      code,
		Payload:   payload,
		MessageID: int32(mid),
		Type:      message.Confirmable,
	})
	if err != nil {
		return err
	}
	c.deliver(b)
	return nil
}

func encode(m message.Message) ([]byte, error) {
	buf := make([]byte, transport.BufferSize)
	n, err := coder.DefaultCoder.Encode(m, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Conn is the client end of a simulated channel.
type Conn struct {
	gw *Gateway

	mu       sync.Mutex
	deadline time.Time
	wake     chan struct{}
	inbox    chan []byte
	closed   chan struct{}
	once     sync.Once
}

func (c *Conn) deliver(b []byte) {
	select {
	case c.inbox <- b:
	case <-c.closed:
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}
	b := append([]byte(nil), p...)
	if err := c.gw.handle(c, b); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	for {
		c.mu.Lock()
		deadline, wake := c.deadline, c.wake
		c.mu.Unlock()

		var timeout <-chan time.Time
		var timer *time.Timer
		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer = time.NewTimer(d)
			timeout = timer.C
		}

		select {
		case b := <-c.inbox:
			stopTimer(timer)
			return copy(p, b), nil
		case <-timeout:
			return 0, os.ErrDeadlineExceeded
		case <-wake:
			stopTimer(timer)
		case <-c.closed:
			stopTimer(timer)
			return 0, net.ErrClosed
		}
	}
}

func (c *Conn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	close(c.wake)
	c.wake = make(chan struct{})
	return nil
}

func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.gw.Lock()
		defer c.gw.Unlock()
		for path, obs := range c.gw.observers {
			kept := obs[:0]
			for _, o := range obs {
				if o.conn != c {
					kept = append(kept, o)
				}
			}
			c.gw.observers[path] = kept
		}
	})
	return nil
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
