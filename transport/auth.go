package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// AuthIdentity is the fixed PSK identity used while pairing.
	AuthIdentity = "Client_identity"
	// AuthPath is the resource that issues permanent keys.
	AuthPath = "15011/9063"
)

type authRequest struct {
	Identity string `json:"9090"`
}

type authResponse struct {
	PreSharedKey string `json:"9091"`
}

// Authenticate trades the pairing code printed on the gateway for a
// permanent pre-shared key bound to identifier. cfg.Timeout bounds the whole
// exchange. Every failure wraps ErrAuthentication; transport failures also
// wrap ErrTransport.
func Authenticate(ctx context.Context, address, identifier, code string, cfg Config) (string, error) {
	log := cfg.loggerFactory().NewLogger("tradfri-auth")
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	log.Infof("requesting key for %q from %s", identifier, address)
	s, err := Open(ctx, address, AuthIdentity, []byte(code), Config{
		Dialer:        cfg.Dialer,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	defer s.Close()

	body, err := json.Marshal(&authRequest{Identity: identifier})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	payload, err := s.Post(ctx, AuthPath, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	resp := &authResponse{}
	if err := json.Unmarshal(payload, resp); err != nil {
		return "", fmt.Errorf("%w: malformed response %q: %w", ErrAuthentication, string(payload), err)
	}
	if resp.PreSharedKey == "" {
		return "", fmt.Errorf("%w: response %q has no key", ErrAuthentication, string(payload))
	}
	log.Infof("received key for %q", identifier)
	return resp.PreSharedKey, nil
}
