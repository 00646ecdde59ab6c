package tradfri

import (
	"encoding/json"
	"fmt"
)

// props is the generic, numerically keyed property map of a resource.
type props map[string]json.RawMessage

func parseProps(raw []byte) (props, error) {
	p := props{}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("expected object, got null")
	}
	return p, nil
}

// has reports whether key is present with a non-null value.
func (p props) has(key string) bool {
	v, ok := p[key]
	return ok && string(v) != "null"
}

func (p props) hasAll(keys ...string) bool {
	for _, k := range keys {
		if !p.has(k) {
			return false
		}
	}
	return true
}

func (p props) require(keys ...string) error {
	for _, k := range keys {
		if !p.has(k) {
			return fmt.Errorf("missing field %q", k)
		}
	}
	return nil
}

// decode unmarshals the whole map into v after checking required keys.
func (p props) decode(v interface{}, required ...string) error {
	if err := p.require(required...); err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
