// Package change defines the closed set of structural mutations that can be
// applied to a workspace folder tree.
//
// A Change is the unit shared by every layer of the sync engine: the tree
// applies it, the state manager stores it as a pending optimistic delta and
// receives it back as a server-pushed delta, the operation log persists it,
// and the processor dispatches on its Kind for remote delivery.
//
// The union is closed: every Kind is listed in Kinds(), decoding an unknown
// kind is an error, and any switch over Kind that reaches an unlisted value
// is a programming error (a schema mismatch between writer and reader), not
// a runtime condition to tolerate.
package change

import (
	"encoding/json"
	"fmt"
)

// Kind identifies one variant of the mutation union.
type Kind string

const (
	KindCreateFolder   Kind = "create_folder"
	KindCreateRunbook  Kind = "create_runbook"
	KindImportRunbooks Kind = "import_runbooks"
	KindRenameFolder   Kind = "rename_folder"
	KindDeleteFolder   Kind = "delete_folder"
	KindDeleteRunbook  Kind = "delete_runbook"
	KindMoveItems      Kind = "move_items"
)

// Kinds returns every variant of the union in a stable order.
// Exhaustiveness tests iterate this list against each dispatch site.
func Kinds() []Kind {
	return []Kind{
		KindCreateFolder,
		KindCreateRunbook,
		KindImportRunbooks,
		KindRenameFolder,
		KindDeleteFolder,
		KindDeleteRunbook,
		KindMoveItems,
	}
}

// Valid reports whether k is a member of the union.
func (k Kind) Valid() bool {
	switch k {
	case KindCreateFolder, KindCreateRunbook, KindImportRunbooks,
		KindRenameFolder, KindDeleteFolder, KindDeleteRunbook, KindMoveItems:
		return true
	}
	return false
}

// Change is one structural mutation. Which fields are meaningful depends on
// Kind; Validate enforces the per-variant shape.
//
// Parent is the id of the destination folder; the empty string addresses the
// workspace root.
type Change struct {
	Kind   Kind     `json:"kind"`
	ID     string   `json:"id,omitempty"`     // create_*, rename_folder, delete_*
	IDs    []string `json:"ids,omitempty"`    // import_runbooks, move_items
	Name   string   `json:"name,omitempty"`   // create_folder, rename_folder
	Parent string   `json:"parent,omitempty"` // create_*, import_runbooks, move_items
	Index  int      `json:"index,omitempty"`  // move_items
}

// Validate checks that the change carries exactly the fields its variant
// requires. It does not consult any tree; structural applicability (does the
// parent exist, is the id a folder) is the tree's concern.
func (c Change) Validate() error {
	switch c.Kind {
	case KindCreateFolder:
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("%s: id and name are required", c.Kind)
		}
	case KindCreateRunbook:
		if c.ID == "" {
			return fmt.Errorf("%s: id is required", c.Kind)
		}
	case KindImportRunbooks:
		if len(c.IDs) == 0 {
			return fmt.Errorf("%s: ids are required", c.Kind)
		}
	case KindRenameFolder:
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("%s: id and name are required", c.Kind)
		}
	case KindDeleteFolder, KindDeleteRunbook:
		if c.ID == "" {
			return fmt.Errorf("%s: id is required", c.Kind)
		}
	case KindMoveItems:
		if len(c.IDs) == 0 {
			return fmt.Errorf("%s: ids are required", c.Kind)
		}
		if c.Index < 0 {
			return fmt.Errorf("%s: index must be non-negative", c.Kind)
		}
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
	return nil
}

// Marshal serializes the change to JSON after validating it.
func Marshal(c Change) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes a change and rejects unknown or malformed variants.
// Callers rely on this being the single choke point where a log written by a
// newer schema is detected.
func Unmarshal(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	return c, nil
}
