package tradfri_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/require"

	"hemtjan.st/tradfrigw/tradfri"
	"hemtjan.st/tradfrigw/transport"
	"hemtjan.st/tradfrigw/transport/transporttest"
)

const (
	remoteFixture = `{"3":{"0":"IKEA of Sweden","1":"TRADFRI remote control","2":"","3":"1.2.214","6":3,"9":87},` +
		`"5750":0,"9001":"Remote","9002":1545000000,"9003":65537,"9019":1,"9020":1545100000}`
	lightFixture = `{"3":{"0":"IKEA of Sweden","1":"TRADFRI bulb E27 W opal 1000lm","2":"","3":"1.2.214","6":1},` +
		`"3311":[{"5850":0,"5851":254,"9003":0}],"5750":2,"9001":"Kitchen","9002":1545000000,"9003":65568,` +
		`"9019":1,"9020":1545100000}`
	outletFixture = `{"3":{"0":"IKEA of Sweden","1":"TRADFRI control outlet","3":"2.0.022","6":1},` +
		`"3312":[{"5850":0,"5851":254,"9003":0}],"5750":3,"9001":"Fan","9002":1545000000,"9003":65570,` +
		`"9019":1,"9020":1545100000}`
	groupFixture = `{"5850":1,"5851":200,"9001":"Living room","9002":1545000000,"9003":131073,` +
		`"9018":{"15002":{"9003":[65537,65568]}},"9039":196608}`
)

// resources is a minimal gateway resource tree. PUT merges the payload into
// the stored object the way the gateway applies partial updates.
type resources struct {
	mu    sync.Mutex
	items map[string]interface{}
	drop  map[string]bool
}

func newResources(t *testing.T, items map[string]string) *resources {
	t.Helper()
	r := &resources{items: map[string]interface{}{}, drop: map[string]bool{}}
	for path, raw := range items {
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			// Kept verbatim to exercise decode failures.
			v = json.RawMessage(raw)
		}
		r.items[path] = v
	}
	return r
}

func (r *resources) set(path, raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		panic(err)
	}
	r.items[path] = v
}

func (r *resources) get(path string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, _ := json.Marshal(r.items[path])
	return b
}

func (r *resources) handle(req *transport.Request) (codes.Code, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drop[req.Path] {
		return codes.Empty, nil
	}
	cur, ok := r.items[req.Path]
	if !ok {
		return codes.NotFound, nil
	}
	switch req.Method {
	case transport.MethodGet:
		if raw, ok := cur.(json.RawMessage); ok {
			return codes.Content, raw
		}
		b, err := json.Marshal(cur)
		if err != nil {
			return codes.InternalServerError, nil
		}
		return codes.Content, b
	case transport.MethodPut:
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return codes.BadRequest, nil
		}
		var upd map[string]interface{}
		if err := json.Unmarshal(req.Payload, &upd); err != nil {
			return codes.BadRequest, nil
		}
		merge(obj, upd)
		return codes.Changed, nil
	default:
		return codes.MethodNotAllowed, nil
	}
}

func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		if list, ok := v.([]interface{}); ok {
			if old, ok := dst[k].([]interface{}); ok && len(old) == len(list) {
				for i := range list {
					o, ok1 := old[i].(map[string]interface{})
					n, ok2 := list[i].(map[string]interface{})
					if ok1 && ok2 {
						merge(o, n)
					}
				}
				continue
			}
		}
		dst[k] = v
	}
}

func connect(t *testing.T, res *resources) (*tradfri.Connected, *transporttest.Gateway) {
	t.Helper()
	return connectWith(t, res, tradfri.Config{})
}

func connectWith(t *testing.T, res *resources, cfg tradfri.Config) (*tradfri.Connected, *transporttest.Gateway) {
	t.Helper()
	gw := transporttest.NewGateway(res.handle)
	gw.Keys = map[string]string{"user1": "secret"}
	cfg.Dialer = gw
	creds := tradfri.Credentials{Identifier: "user1", PSK: "secret"}
	c, err := tradfri.NewWithCredentials("gateway", creds, cfg).Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, gw
}

func puts(gw *transporttest.Gateway) []string {
	var out []string
	for _, r := range gw.Requests() {
		if r.Method == transport.MethodPut {
			out = append(out, r.Path+" "+string(r.Payload))
		}
	}
	return out
}

func basicTree() map[string]string {
	return map[string]string{
		"15001":        `[65537,65568]`,
		"15001/65537":  remoteFixture,
		"15001/65568":  lightFixture,
		"15001/65570":  outletFixture,
		"15004":        `[131073]`,
		"15004/131073": groupFixture,
	}
}
