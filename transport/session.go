package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/plgd-dev/go-coap/v3/message"
)

// Config configures a Session or an authentication exchange.
type Config struct {
	// Dialer opens the secure channel. If nil, a DTLSDialer is used.
	Dialer Dialer

	// Timeout bounds every request (and, for Authenticate, the whole
	// exchange). Zero means no bound.
	Timeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, pion's default factory is used.
	LoggerFactory logging.LoggerFactory
}

func (c Config) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory != nil {
		return c.LoggerFactory
	}
	return logging.NewDefaultLoggerFactory()
}

func (c Config) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &DTLSDialer{LoggerFactory: c.loggerFactory()}
}

// Session owns one secure channel and runs strictly sequential
// request/response exchanges over it. Concurrent callers block each other.
type Session struct {
	mu      sync.Mutex
	ch      Channel
	codec   Codec
	nextID  uint16
	timeout time.Duration
	closed  bool
	log     logging.LeveledLogger
}

// Open dials address with the given identity and key and wraps the
// resulting channel in a Session.
func Open(ctx context.Context, address, identity string, psk []byte, cfg Config) (*Session, error) {
	dialCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	ch, err := cfg.dialer().Dial(dialCtx, address, identity, psk)
	if err != nil {
		if !errors.Is(err, ErrTransport) {
			err = transportError("dialing "+address, err)
		}
		return nil, err
	}
	return NewSession(ch, cfg), nil
}

// NewSession wraps an already established channel.
func NewSession(ch Channel, cfg Config) *Session {
	return &Session{
		ch:      ch,
		nextID:  uint16(time.Now().UnixNano()),
		timeout: cfg.Timeout,
		log:     cfg.loggerFactory().NewLogger("tradfri-session"),
	}
}

// SetTimeout rebinds the per-request read/write timeout. Zero removes it.
func (s *Session) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Request sends one request and blocks until its response arrives. A
// response with a non-2.xx code is returned together with a *StatusError.
func (s *Session) Request(ctx context.Context, method Method, path string, payload []byte) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	req := s.newRequest(method, path, payload)
	s.log.Debugf("%v %s (mid=%d, %d bytes)", method, path, req.MessageID, len(payload))

	stop := s.armDeadline(ctx)
	defer stop()

	if err := s.write(ctx, req); err != nil {
		return nil, err
	}
	resp, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Tracef("%v %s -> %v: %s", method, path, resp.Code, string(resp.Payload))
	if !resp.Success() {
		return resp, &StatusError{Code: resp.Code, Payload: resp.Payload}
	}
	return resp, nil
}

func (s *Session) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.Request(ctx, MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (s *Session) Put(ctx context.Context, path string, data []byte) error {
	_, err := s.Request(ctx, MethodPut, path, data)
	return err
}

func (s *Session) Post(ctx context.Context, path string, data []byte) ([]byte, error) {
	resp, err := s.Request(ctx, MethodPost, path, data)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (s *Session) Delete(ctx context.Context, path string) error {
	_, err := s.Request(ctx, MethodDelete, path, nil)
	return err
}

// Observe registers for notifications on path and invokes cb for the initial
// response and every notification after it. It holds the session until ctx
// is done (returning ctx.Err()), cb returns an error, or the channel fails.
// Use a dedicated session for observation.
func (s *Session) Observe(ctx context.Context, path string, cb func(*Response) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	req := s.newRequest(MethodGet, path, nil)
	req.Observe = true
	s.log.Debugf("observing %s", path)

	if err := s.ch.SetDeadline(time.Time{}); err != nil {
		return transportError("clearing deadline", err)
	}
	stop := s.unblockOnCancel(ctx)
	defer stop()

	if err := s.write(ctx, req); err != nil {
		return err
	}
	for {
		resp, err := s.read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if !resp.Success() {
			return &StatusError{Code: resp.Code, Payload: resp.Payload}
		}
		if err := cb(resp); err != nil {
			return err
		}
	}
}

// Close releases the channel. Further requests fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.ch.Close()
}

func (s *Session) newRequest(method Method, path string, payload []byte) *Request {
	s.nextID++
	return &Request{
		Method:    method,
		Path:      path,
		Payload:   payload,
		MessageID: s.nextID,
		Token:     NewToken(),
	}
}

// armDeadline applies the tighter of the session timeout and the context
// deadline, and unblocks a pending read if ctx is cancelled.
func (s *Session) armDeadline(ctx context.Context) func() bool {
	var deadline time.Time
	if s.timeout > 0 {
		deadline = time.Now().Add(s.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := s.ch.SetDeadline(deadline); err != nil {
		s.log.Warnf("setting deadline: %v", err)
	}
	return s.unblockOnCancel(ctx)
}

// unblockOnCancel expires the channel deadline when ctx is done. The
// returned func reports whether it stopped that before it happened.
func (s *Session) unblockOnCancel(ctx context.Context) func() bool {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = s.ch.SetDeadline(time.Now())
	})
	// Once the returned func is done no late deadline can reach the channel
	// and spoil the next request.
	return func() bool {
		if stop() {
			return true
		}
		<-fired
		return false
	}
}

func (s *Session) write(ctx context.Context, req *Request) error {
	b, err := s.codec.Encode(req)
	if err != nil {
		return transportError("encoding request", err)
	}
	if _, err := s.ch.Write(b); err != nil {
		return s.ioError(ctx, fmt.Sprintf("writing %v %s", req.Method, req.Path), err)
	}
	return nil
}

// read returns the next response, skipping empty acknowledgements that
// announce a separate response and acknowledging confirmable messages.
func (s *Session) read(ctx context.Context) (*Response, error) {
	buf := make([]byte, BufferSize)
	for {
		n, err := s.ch.Read(buf)
		if err != nil {
			return nil, s.ioError(ctx, "reading response", err)
		}
		resp, err := s.codec.Decode(buf[:n])
		if err != nil {
			return nil, transportError("framing", err)
		}
		if resp.isEmptyAck() {
			s.log.Trace("empty ack, waiting for separate response")
			continue
		}
		if resp.Type == message.Confirmable {
			if err := s.ack(ctx, resp.MessageID); err != nil {
				return nil, err
			}
		}
		return resp, nil
	}
}

func (s *Session) ack(ctx context.Context, mid uint16) error {
	b, err := s.codec.EncodeAck(mid)
	if err != nil {
		return transportError("encoding ack", err)
	}
	if _, err := s.ch.Write(b); err != nil {
		return s.ioError(ctx, "writing ack", err)
	}
	return nil
}

func (s *Session) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return transportError(op, err)
}
