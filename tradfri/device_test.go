package tradfri

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	remoteFixture = `{"3":{"0":"IKEA of Sweden","1":"TRADFRI remote control","2":"","3":"1.2.214","6":3,"9":87},` +
		`"5750":0,"9001":"Remote","9002":1545000000,"9003":65537,"9019":1,"9020":1545100000}`
	lightFixture = `{"3":{"0":"IKEA of Sweden","1":"TRADFRI bulb E27 W opal 1000lm","2":"","3":"1.2.214","6":1},` +
		`"3311":[{"5850":0,"5851":254,"9003":0}],"5750":2,"9001":"Kitchen","9002":1545000000,"9003":65568,` +
		`"9019":1,"9020":1545100000,"9054":0}`
	outletFixture = `{"3":{"0":"IKEA of Sweden","1":"TRADFRI control outlet","3":"2.0.022","6":1},` +
		`"3312":[{"5850":1,"5851":254,"9003":0}],"5750":3,"9001":"Fan","9002":1545000000,"9003":65570,` +
		`"9019":0,"9020":1545100000}`
)

func TestDecodeDeviceDispatch(t *testing.T) {
	dev, err := DecodeDevice([]byte(remoteFixture))
	require.NoError(t, err)
	assert.IsType(t, &RemoteControl{}, dev)
	assert.Equal(t, TypeRemote, dev.Type())

	// No other field of a remote is consulted.
	dev, err = DecodeDevice([]byte(`{"5750":0}`))
	require.NoError(t, err)
	assert.IsType(t, &RemoteControl{}, dev)

	dev, err = DecodeDevice([]byte(lightFixture))
	require.NoError(t, err)
	l, ok := dev.(*Light)
	require.True(t, ok)
	assert.Equal(t, ResourceID(65568), l.ID)
	assert.Equal(t, "Kitchen", l.Name)
	assert.Equal(t, "TRADFRI bulb E27 W opal 1000lm", l.Info.Model)
	assert.Equal(t, "1.2.214", l.Info.Firmware)
	require.NotNil(t, l.Info.PowerSource)
	assert.Equal(t, uint32(1), *l.Info.PowerSource)
	assert.Nil(t, l.Info.Battery)
	assert.Equal(t, time.Date(2018, 12, 16, 22, 40, 0, 0, time.UTC), l.CreatedAt)
	assert.Equal(t, time.UTC, l.LastSeen.Location())
	assert.True(t, l.Reachable)
	require.Len(t, l.Bulbs, 1)
	assert.Equal(t, &Driver{On: No, Brightness: 254}, l.Bulbs[0])
	assert.False(t, l.IsOn())
	assert.Equal(t, uint8(254), l.Brightness())

	dev, err = DecodeDevice([]byte(outletFixture))
	require.NoError(t, err)
	o, ok := dev.(*Outlet)
	require.True(t, ok)
	assert.Equal(t, ResourceID(65570), o.ID)
	assert.False(t, o.Reachable)
	assert.Equal(t, []Relay{{On: Yes, Dimmer: 254}}, o.Relays)
	assert.True(t, o.IsOn())
}

func TestDecodeDeviceUnsupportedType(t *testing.T) {
	for _, code := range []uint32{1, 4, 6, 7, 1000} {
		_, err := DecodeDevice([]byte(`{"5750":` + ResourceID(code).String() + `}`))
		var ue *UnsupportedDeviceTypeError
		require.True(t, errors.As(err, &ue), "code %d: %v", code, err)
		assert.Equal(t, code, ue.Code)
	}
}

func TestDecodeDeviceErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"no type", `{"9001":"x"}`},
		{"negative type", `{"5750":-1}`},
		{"light without bulbs", `{"3":{},"5750":2,"9001":"a","9002":1,"9003":1,"9019":1,"9020":1}`},
		{"light without name", `{"3":{},"3311":[],"5750":2,"9002":1,"9003":1,"9019":1,"9020":1}`},
		{"light with bad bulb", `{"3":{},"3311":[{"5850":1}],"5750":2,"9001":"a","9002":1,"9003":1,"9019":1,"9020":1}`},
		{"reachable 3", `{"3":{},"3311":[],"5750":2,"9001":"a","9002":1,"9003":1,"9019":3,"9020":1}`},
		{"timestamp too large", `{"3":{},"3311":[],"5750":2,"9001":"a","9002":4294967296,"9003":1,"9019":1,"9020":1}`},
		{"outlet without relay state", `{"3":{},"3312":[{}],"5750":3,"9001":"a","9002":1,"9003":1,"9019":1,"9020":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDevice([]byte(tt.raw))
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.raw, de.Raw)
		})
	}
}

func TestDecodeGroup(t *testing.T) {
	raw := `{"5850":1,"5851":200,"9001":"Living room","9002":1545000000,"9003":131073,` +
		`"9018":{"15002":{"9003":[65537,65568]}},"9039":196608,"9108":0}`
	g, err := DecodeGroup([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, ResourceID(131073), g.ID)
	assert.Equal(t, "Living room", g.Name)
	assert.True(t, g.On)
	assert.Equal(t, uint8(200), g.Brightness)
	assert.Equal(t, []ResourceID{65537, 65568}, g.Members)
	require.NotNil(t, g.Scene)
	assert.Equal(t, ResourceID(196608), *g.Scene)

	_, err = DecodeGroup([]byte(`{"5850":1,"5851":200,"9001":"x","9002":1,"9003":1}`))
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestDecodeScene(t *testing.T) {
	s, err := DecodeScene(131073, []byte(`{"9001":"RELAX","9002":1545000000,"9003":196608,"9057":2,"9068":1}`))
	require.NoError(t, err)
	assert.Equal(t, &Scene{
		ID:         196608,
		Group:      131073,
		Name:       "RELAX",
		CreatedAt:  time.Unix(1545000000, 0).UTC(),
		Index:      2,
		Predefined: true,
	}, s)
}

func TestDecodeGatewayInfo(t *testing.T) {
	info, err := DecodeGatewayInfo([]byte(`{"9023":"pool.ntp.org","9029":"1.13.21","9035":"","9054":0,"9055":0,` +
		`"9059":1545000000,"9061":0,"9066":2,"9081":"7e1a"}`))
	require.NoError(t, err)
	assert.Equal(t, "1.13.21", info.Version)
	assert.Equal(t, "pool.ntp.org", info.NTPServer)
	assert.Equal(t, PrioRequired, info.UpdatePriority)
	assert.Equal(t, time.Unix(1545000000, 0).UTC(), info.Time)

	_, err = DecodeGatewayInfo([]byte(`{}`))
	assert.Error(t, err)
}

func TestDecodeNotifications(t *testing.T) {
	n, err := DecodeNotifications([]byte(`[{"9015":1003,"9014":0,"9002":1545000000,"9017":["reason=1"]}]`))
	require.NoError(t, err)
	require.Len(t, n, 1)
	assert.Equal(t, EventGatewayReboot, n[0].Event)
	assert.Equal(t, "gateway rebooting", n[0].Event.String())
	assert.Equal(t, []string{"reason=1"}, n[0].Details)
	assert.Equal(t, time.Unix(1545000000, 0).UTC(), n[0].Time())
}

func TestDecodeIDs(t *testing.T) {
	ids, err := decodeIDs([]byte(`[65537,65568]`))
	require.NoError(t, err)
	assert.Equal(t, []ResourceID{65537, 65568}, ids)

	_, err = decodeIDs([]byte(`{"a":1}`))
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}
