package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/udp/coder"
	uuid "github.com/satori/go.uuid"
)

// BufferSize is the ceiling for a single datagram read from the gateway.
const BufferSize = 8192

const tokenSize = 8

// Options are decoded into a caller supplied slice; start with room for
// this many and grow up to maxOptions.
const (
	initialOptions = 16
	maxOptions     = 256
)

type Method uint8

const (
	MethodGet    Method = Method(codes.GET)
	MethodPost   Method = Method(codes.POST)
	MethodPut    Method = Method(codes.PUT)
	MethodDelete Method = Method(codes.DELETE)
)

func (m Method) String() string {
	return codes.Code(m).String()
}

// Request is a single CoAP request addressed to a gateway resource path such
// as "15001/65537".
type Request struct {
	Method    Method
	Path      string
	Payload   []byte
	MessageID uint16
	Token     []byte
	Observe   bool
}

// Response is a decoded CoAP message received from the gateway.
type Response struct {
	Code      codes.Code
	Type      message.Type
	MessageID uint16
	Token     []byte
	Payload   []byte
}

// Success reports whether the response carries a 2.xx code.
func (r *Response) Success() bool {
	return uint8(r.Code)>>5 == 2
}

func (r *Response) isEmptyAck() bool {
	return r.Type == message.Acknowledgement && r.Code == codes.Empty
}

// Codec frames requests and responses using the CoAP datagram encoding.
type Codec struct{}

// NewToken returns a fresh 8 byte request token.
func NewToken() []byte {
	u := uuid.NewV4()
	return u.Bytes()[:tokenSize]
}

func (Codec) Encode(req *Request) ([]byte, error) {
	var opts message.Options
	if req.Observe {
		// Observe (6) sorts before Uri-Path (11); register with value 0.
		opts = append(opts, message.Option{ID: message.Observe, Value: []byte{}})
	}
	for _, seg := range strings.Split(strings.Trim(req.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		opts = append(opts, message.Option{ID: message.URIPath, Value: []byte(seg)})
	}
	if len(req.Payload) > 0 {
		opts = append(opts, message.Option{ID: message.ContentFormat, Value: []byte{byte(message.AppJSON)}})
	}

	m := message.Message{
		Token:     req.Token,
		Options:   opts,
		Code:      codes.Code(req.Method),
		Payload:   req.Payload,
		MessageID: int32(req.MessageID),
		Type:      message.Confirmable,
	}
	buf := make([]byte, BufferSize)
	n, err := coder.DefaultCoder.Encode(m, buf)
	if err != nil {
		return nil, fmt.Errorf("encoding %v %s: %w", req.Method, req.Path, err)
	}
	return buf[:n], nil
}

// EncodeAck builds the empty acknowledgement for a confirmable message.
func (Codec) EncodeAck(messageID uint16) ([]byte, error) {
	m := message.Message{
		Code:      codes.Empty,
		MessageID: int32(messageID),
		Type:      message.Acknowledgement,
	}
	buf := make([]byte, 16)
	n, err := coder.DefaultCoder.Encode(m, buf)
	if err != nil {
		return nil, fmt.Errorf("encoding ack %d: %w", messageID, err)
	}
	return buf[:n], nil
}

func decodeMessage(data []byte) (message.Message, error) {
	size := initialOptions
	for {
		m := message.Message{Options: make(message.Options, 0, size)}
		_, err := coder.DefaultCoder.Decode(data, &m)
		if !errors.Is(err, message.ErrOptionsTooSmall) || size >= maxOptions {
			return m, err
		}
		size *= 2
	}
}

func (Codec) Decode(data []byte) (*Response, error) {
	m, err := decodeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &Response{
		Code:      m.Code,
		Type:      m.Type,
		MessageID: uint16(m.MessageID),
		Token:     m.Token,
		Payload:   m.Payload,
	}, nil
}

// DecodeRequest parses a request datagram. It is the inverse of Encode and is
// used by gateway simulators.
func (Codec) DecodeRequest(data []byte) (*Request, error) {
	m, err := decodeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	req := &Request{
		Method:    Method(m.Code),
		MessageID: uint16(m.MessageID),
		Token:     m.Token,
		Payload:   m.Payload,
	}
	var segs []string
	for _, o := range m.Options {
		switch o.ID {
		case message.URIPath:
			segs = append(segs, string(o.Value))
		case message.Observe:
			req.Observe = true
		}
	}
	req.Path = strings.Join(segs, "/")
	return req, nil
}

// EncodeResponse frames a piggybacked response to req. It is the server side
// counterpart of Decode.
func (Codec) EncodeResponse(req *Request, code codes.Code, payload []byte) ([]byte, error) {
	m := message.Message{
		Token:     req.Token,
		Code:      code,
		Payload:   payload,
		MessageID: int32(req.MessageID),
		Type:      message.Acknowledgement,
	}
	if len(payload) > 0 {
		m.Options = message.Options{{ID: message.ContentFormat, Value: []byte{byte(message.AppJSON)}}}
	}
	buf := make([]byte, BufferSize)
	n, err := coder.DefaultCoder.Encode(m, buf)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return buf[:n], nil
}
