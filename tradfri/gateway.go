package tradfri

import "time"

// GatewayInfo describes the gateway itself.
type GatewayInfo struct {
	// Name of the gateway, usually empty
	Name string

	// Version of the gateway firmware
	Version string

	// NTPServer that the gateway uses
	NTPServer string

	// Time is the gateway's current clock
	Time time.Time

	// UpdateState is set to 1 while a firmware update is running
	UpdateState int

	// UpdateProgress is a percentage
	UpdateProgress int

	UpdatePriority UpdatePriority

	// CommissioningMode is non-zero while pairing new devices
	CommissioningMode int
}

type gatewayWire struct {
	NTPServer         string         `json:"9023"`
	Version           string         `json:"9029"`
	Name              string         `json:"9035"`
	UpdateState       int            `json:"9054"`
	UpdateProgress    int            `json:"9055"`
	Timestamp         uint32         `json:"9059"`
	CommissioningMode int            `json:"9061"`
	UpdatePriority    UpdatePriority `json:"9066"`
}

func DecodeGatewayInfo(raw []byte) (*GatewayInfo, error) {
	p, err := parseProps(raw)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	w := gatewayWire{}
	if err := p.decode(&w, "9029"); err != nil {
		return nil, newDecodeError(err, raw)
	}
	return &GatewayInfo{
		Name:              w.Name,
		Version:           w.Version,
		NTPServer:         w.NTPServer,
		Time:              unixTime(w.Timestamp),
		UpdateState:       w.UpdateState,
		UpdateProgress:    w.UpdateProgress,
		UpdatePriority:    w.UpdatePriority,
		CommissioningMode: w.CommissioningMode,
	}, nil
}
