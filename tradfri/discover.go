package tradfri

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"

	"hemtjan.st/tradfrigw/transport"
)

const (
	DiscoveryService = "_coap._udp"
	DiscoveryDomain  = "local."
	// GatewayPrefix starts the mDNS instance name of every gateway.
	GatewayPrefix = "TRADFRI-Gateway-"

	DefaultDiscoveryTimeout = 15 * time.Second
)

// Browser browses mDNS services. *zeroconf.Resolver implements it.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

type DiscoveryConfig struct {
	// Browser defaults to a zeroconf resolver on all interfaces.
	Browser Browser

	// Timeout defaults to DefaultDiscoveryTimeout.
	Timeout time.Duration

	LoggerFactory logging.LoggerFactory
}

// Discover returns the host:port of the first gateway announcing itself on
// the local network, or ErrDiscoveryTimeout.
func Discover(ctx context.Context, cfg DiscoveryConfig) (string, error) {
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	log := lf.NewLogger("tradfri-discovery")

	browser := cfg.Browser
	if browser == nil {
		r, err := zeroconf.NewResolver()
		if err != nil {
			return "", err
		}
		browser = r
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The resolver owns the channel and closes it once ctx is done.
	entries := make(chan *zeroconf.ServiceEntry, 8)
	browseErr := make(chan error, 1)
	go func() {
		browseErr <- browser.Browse(ctx, DiscoveryService, DiscoveryDomain, entries)
	}()

	log.Debugf("browsing %s.%s for %s*", DiscoveryService, DiscoveryDomain, GatewayPrefix)
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			if addr, ok := gatewayAddress(e); ok {
				log.Infof("found gateway %s at %s", e.Instance, addr)
				return addr, nil
			}
		case err := <-browseErr:
			if err != nil && ctx.Err() == nil {
				return "", err
			}
			browseErr = nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrDiscoveryTimeout
			}
			return "", ctx.Err()
		}
	}
}

func gatewayAddress(e *zeroconf.ServiceEntry) (string, bool) {
	if e == nil {
		return "", false
	}
	if !strings.HasPrefix(e.Instance, GatewayPrefix) && !strings.HasPrefix(e.HostName, GatewayPrefix) {
		return "", false
	}
	var ip net.IP
	switch {
	case len(e.AddrIPv4) > 0:
		ip = e.AddrIPv4[0]
	case len(e.AddrIPv6) > 0:
		ip = e.AddrIPv6[0]
	default:
		return "", false
	}
	port := e.Port
	if port == 0 {
		port = transport.DefaultPort
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(port)), true
}
