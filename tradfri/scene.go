package tradfri

import "time"

// Scene is a stored light setting of a group.
type Scene struct {
	ID         ResourceID
	Group      ResourceID
	Name       string
	CreatedAt  time.Time
	Index      int
	Predefined bool
}

type sceneWire struct {
	Name       string     `json:"9001"`
	CreatedAt  uint32     `json:"9002"`
	ID         ResourceID `json:"9003"`
	Index      int        `json:"9057"`
	Predefined YesNo      `json:"9068"`
}

// DecodeScene decodes a scene of group.
func DecodeScene(group ResourceID, raw []byte) (*Scene, error) {
	p, err := parseProps(raw)
	if err != nil {
		return nil, newDecodeError(err, raw)
	}
	w := sceneWire{}
	if err := p.decode(&w, keyName, keyID); err != nil {
		return nil, newDecodeError(err, raw)
	}
	return &Scene{
		ID:         w.ID,
		Group:      group,
		Name:       w.Name,
		CreatedAt:  unixTime(w.CreatedAt),
		Index:      w.Index,
		Predefined: w.Predefined.Bool(),
	}, nil
}

func scenePath(group ResourceID) string {
	return SceneEndpoint + "/" + group.String()
}
