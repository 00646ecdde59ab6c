package transport

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"
)

// DefaultPort is the CoAPS port the gateway listens on.
const DefaultPort = 5684

// Channel is an established, encrypted datagram channel to the gateway.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Channel authenticated with a pre-shared identity and key.
type Dialer interface {
	Dial(ctx context.Context, address, identity string, psk []byte) (Channel, error)
}

// DTLSDialer dials the gateway over DTLS 1.2 with TLS_PSK_WITH_AES_128_CCM_8.
type DTLSDialer struct {
	LoggerFactory logging.LoggerFactory
}

func (d *DTLSDialer) Dial(ctx context.Context, address, identity string, psk []byte) (Channel, error) {
	raddr, err := net.ResolveUDPAddr("udp", WithDefaultPort(address))
	if err != nil {
		return nil, transportError("resolving "+address, err)
	}

	conn, err := dtls.Dial("udp", raddr, &dtls.Config{
		PSK: func(hint []byte) ([]byte, error) {
			return psk, nil
		},
		PSKIdentityHint: []byte(identity),
		CipherSuites:    []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_CCM_8},
		LoggerFactory:   d.LoggerFactory,
	})
	if err != nil {
		return nil, transportError("dialing "+raddr.String(), err)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, transportError("handshake with "+raddr.String(), err)
	}
	return conn, nil
}

// WithDefaultPort appends DefaultPort to address unless it already names one.
func WithDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, strconv.Itoa(DefaultPort))
}
