package oplog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/foldersync/internal/change"
)

// Operation is one row of the mutation log: a tagged structural change,
// the ChangeRef of the optimistic update it corresponds to, and its delivery
// state.
type Operation struct {
	ID          string
	Workspace   string
	ChangeRef   string
	Change      change.Change
	ProcessedAt *time.Time // nil until delivery is confirmed
	Created     time.Time
	Updated     time.Time
}

// Processed reports whether the operation has been delivered (or found moot).
func (o Operation) Processed() bool {
	return o.ProcessedAt != nil
}

// envelope is the serialized form of the operation column. The workspace
// scopes delivery; the ChangeRef rides along with the change so a server
// acknowledgment can be matched back to the optimistic update that produced
// it.
type envelope struct {
	Workspace string        `json:"workspace"`
	ChangeRef string        `json:"change_ref"`
	Change    change.Change `json:"change"`
}

func marshalPayload(workspace, changeRef string, c change.Change) (string, error) {
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("marshal operation payload: %w", err)
	}
	data, err := json.Marshal(envelope{Workspace: workspace, ChangeRef: changeRef, Change: c})
	if err != nil {
		return "", fmt.Errorf("marshal operation payload: %w", err)
	}
	return string(data), nil
}

func unmarshalPayload(data string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return envelope{}, fmt.Errorf("unmarshal operation payload: %w", err)
	}
	if err := env.Change.Validate(); err != nil {
		return envelope{}, fmt.Errorf("unmarshal operation payload: %w", err)
	}
	return env, nil
}
