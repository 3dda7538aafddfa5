package tree

import (
	"encoding/json"
	"fmt"
)

// Record is one row of a serialized tree: an item plus its parent id.
// Parent is empty for top-level items.
type Record struct {
	ID     string   `json:"id"`
	Parent string   `json:"parent,omitempty"`
	Kind   ItemKind `json:"kind"`
	Name   string   `json:"name,omitempty"`
}

// Snapshot is the wire and storage form of a tree: records in depth-first
// preorder, children in sibling order. Preorder guarantees a parent always
// precedes its children, so rebuilding is a single append-in-order pass.
type Snapshot struct {
	Items []Record `json:"items"`
}

// Snapshot serializes the tree.
func (t *Tree) Snapshot() Snapshot {
	var items []Record
	var walk func(id string)
	walk = func(id string) {
		n := t.nodes[id]
		if id != rootID {
			rec := Record{ID: n.id, Parent: n.parent, Kind: n.item.Kind, Name: n.item.Name}
			items = append(items, rec)
		}
		for _, cid := range n.children {
			walk(cid)
		}
	}
	walk(rootID)
	if items == nil {
		items = []Record{}
	}
	return Snapshot{Items: items}
}

// FromSnapshot rebuilds a tree from its serialized form. Unlike the mutation
// operations, a malformed snapshot is a data error, not a domain condition,
// so this returns an error.
func FromSnapshot(s Snapshot) (*Tree, error) {
	t := New()
	for i, rec := range s.Items {
		if rec.ID == rootID {
			return nil, fmt.Errorf("snapshot item %d: empty id", i)
		}
		if _, taken := t.nodes[rec.ID]; taken {
			return nil, fmt.Errorf("snapshot item %d: duplicate id %q", i, rec.ID)
		}
		if !t.isFolderOrRoot(rec.Parent) {
			return nil, fmt.Errorf("snapshot item %d: parent %q does not resolve to a folder", i, rec.Parent)
		}
		var item Item
		switch rec.Kind {
		case KindFolder:
			item = Item{Kind: KindFolder, ID: rec.ID, Name: rec.Name}
		case KindRunbook:
			item = Item{Kind: KindRunbook, ID: rec.ID}
		default:
			return nil, fmt.Errorf("snapshot item %d: unknown kind %q", i, rec.Kind)
		}
		t.nodes[rec.ID] = &node{id: rec.ID, parent: rec.Parent, item: item}
		p := t.nodes[rec.Parent]
		p.children = append(p.children, rec.ID)
	}
	return t, nil
}

// MarshalSnapshot serializes the tree to JSON.
func MarshalSnapshot(t *Tree) ([]byte, error) {
	data, err := json.Marshal(t.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot rebuilds a tree from JSON produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*Tree, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return FromSnapshot(s)
}
