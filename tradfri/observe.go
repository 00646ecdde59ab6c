package tradfri

import (
	"context"

	"hemtjan.st/tradfrigw/transport"
)

// ObserveDevice delivers the state of id to cb every time the gateway reports
// a change, starting with the current state. A payload that fails to decode
// is passed as err. It runs on a session of its own until ctx is done
// (returning ctx.Err()), cb returns an error, or the session fails.
func (c *Connected) ObserveDevice(ctx context.Context, id ResourceID, cb func(dev Device, err error) error) error {
	cfg := c.cfg.sessionConfig()
	s, err := transport.Open(ctx, c.endpoint.Address, c.endpoint.Identifier, []byte(c.psk), cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	s.SetTimeout(0)

	c.log.Debugf("observing device %d", id)
	return s.Observe(ctx, devicePath(id), func(resp *transport.Response) error {
		dev, err := DecodeDevice(resp.Payload)
		if err != nil {
			return cb(nil, err)
		}
		c.bind(dev)
		return cb(dev, nil)
	})
}
