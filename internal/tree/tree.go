package tree

import (
	"golang.org/x/text/unicode/norm"
)

// ItemKind distinguishes the two payload variants a node can carry.
type ItemKind string

const (
	KindFolder  ItemKind = "folder"
	KindRunbook ItemKind = "runbook"
)

// Item is the payload of a non-root node: a named folder or a runbook leaf.
// Runbooks carry no name here; their titles live in the document engine.
type Item struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
	Name string   `json:"name,omitempty"`
}

// rootID is the reserved id of the synthetic root node. The root carries no
// item and can never be addressed by callers (empty ids are rejected).
const rootID = ""

type node struct {
	id       string
	parent   string
	children []string
	item     Item
}

// Tree is an ordered folder/runbook tree addressed through a flat id lookup.
// The zero value is not usable; construct with New or FromSnapshot.
type Tree struct {
	nodes map[string]*node
}

// New returns an empty tree containing only the synthetic root.
func New() *Tree {
	t := &Tree{nodes: make(map[string]*node)}
	t.nodes[rootID] = &node{id: rootID}
	return t
}

// Clone returns a deep copy sharing no state with the receiver.
func (t *Tree) Clone() *Tree {
	c := &Tree{nodes: make(map[string]*node, len(t.nodes))}
	for id, n := range t.nodes {
		children := make([]string, len(n.children))
		copy(children, n.children)
		c.nodes[id] = &node{id: n.id, parent: n.parent, children: children, item: n.item}
	}
	return c
}

// Len returns the number of items in the tree, excluding the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Item returns the payload for id, or false if id does not resolve.
func (t *Tree) Item(id string) (Item, bool) {
	n, ok := t.nodes[id]
	if !ok || id == rootID {
		return Item{}, false
	}
	return n.item, true
}

// Children returns the ordered child ids of id ("" addresses the root).
// Returns false if id does not resolve.
func (t *Tree) Children(id string) ([]string, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out, true
}

// Parent returns the parent id of id ("" means the root). Returns false if
// id does not resolve to a non-root node.
func (t *Tree) Parent(id string) (string, bool) {
	n, ok := t.nodes[id]
	if !ok || id == rootID {
		return "", false
	}
	return n.parent, true
}

// CreateFolder inserts a new folder as the first child of parentID
// ("" for the root). Fails if the id is empty or taken, or if parentID does
// not resolve to a folder.
func (t *Tree) CreateFolder(id, name, parentID string) bool {
	if !t.canInsert(id, parentID) {
		return false
	}
	// Names are normalized to NFC so renames originating on macOS compare
	// stably against names pushed back by the server.
	t.nodes[id] = &node{
		id:     id,
		parent: parentID,
		item:   Item{Kind: KindFolder, ID: id, Name: norm.NFC.String(name)},
	}
	t.insertAt(parentID, []string{id}, 0)
	return true
}

// CreateRunbook inserts a new runbook leaf as the first child of parentID.
// Same failure rules as CreateFolder.
func (t *Tree) CreateRunbook(id, parentID string) bool {
	if !t.canInsert(id, parentID) {
		return false
	}
	t.nodes[id] = &node{
		id:     id,
		parent: parentID,
		item:   Item{Kind: KindRunbook, ID: id},
	}
	t.insertAt(parentID, []string{id}, 0)
	return true
}

// ImportRunbooks bulk-inserts runbook leaves at the head of parentID,
// preserving the given order among the batch. Fails with no mutation if the
// parent does not resolve or any id is empty, duplicated, or already taken.
func (t *Tree) ImportRunbooks(ids []string, parentID string) bool {
	if len(ids) == 0 || !t.isFolderOrRoot(parentID) {
		return false
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			return false
		}
		if _, taken := t.nodes[id]; taken {
			return false
		}
		seen[id] = true
	}
	for _, id := range ids {
		t.nodes[id] = &node{
			id:     id,
			parent: parentID,
			item:   Item{Kind: KindRunbook, ID: id},
		}
	}
	t.insertAt(parentID, ids, 0)
	return true
}

// RenameFolder changes a folder's name. Fails if id does not resolve to a
// folder.
func (t *Tree) RenameFolder(id, newName string) bool {
	n, ok := t.nodes[id]
	if !ok || id == rootID || n.item.Kind != KindFolder {
		return false
	}
	n.item.Name = norm.NFC.String(newName)
	return true
}

// DeleteFolder removes a folder and every descendant. Fails if id does not
// resolve to a folder.
func (t *Tree) DeleteFolder(id string) bool {
	n, ok := t.nodes[id]
	if !ok || id == rootID || n.item.Kind != KindFolder {
		return false
	}
	t.removeFromParent(n)
	for _, victim := range t.subtreeIDs(id) {
		delete(t.nodes, victim)
	}
	return true
}

// DeleteRunbook removes a single runbook leaf. Declines if id resolves to a
// folder, so a miswired caller cannot cascade-delete a subtree through the
// wrong entry point.
func (t *Tree) DeleteRunbook(id string) bool {
	n, ok := t.nodes[id]
	if !ok || id == rootID || n.item.Kind != KindRunbook {
		return false
	}
	t.removeFromParent(n)
	delete(t.nodes, id)
	return true
}

// MoveItems reparents a batch of existing nodes under newParentID at the
// given index, preserving the relative order of ids. Fails with no mutation
// if ids is empty or contains duplicates, if the target parent does not
// resolve, if any id does not resolve, or if the move would place a folder
// inside its own subtree.
func (t *Tree) MoveItems(ids []string, newParentID string, index int) bool {
	if len(ids) == 0 || index < 0 || !t.isFolderOrRoot(newParentID) {
		return false
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == rootID || seen[id] {
			return false
		}
		if _, ok := t.nodes[id]; !ok {
			return false
		}
		seen[id] = true
	}
	// A folder cannot become a descendant of itself.
	for _, id := range ids {
		if t.nodes[id].item.Kind != KindFolder {
			continue
		}
		if id == newParentID || t.isDescendant(newParentID, id) {
			return false
		}
	}
	for _, id := range ids {
		t.removeFromParent(t.nodes[id])
	}
	parent := t.nodes[newParentID]
	if index > len(parent.children) {
		index = len(parent.children)
	}
	t.insertAt(newParentID, ids, index)
	for _, id := range ids {
		t.nodes[id].parent = newParentID
	}
	return true
}

// Descendants returns the items reachable from id in breadth-first order,
// starting with id's own item (or, for the root, its children onward).
// Returns false if id does not resolve.
func (t *Tree) Descendants(id string) ([]Item, bool) {
	if _, ok := t.nodes[id]; !ok {
		return nil, false
	}
	var items []Item
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := t.nodes[cur]
		if cur != rootID {
			items = append(items, n.item)
		}
		queue = append(queue, n.children...)
	}
	return items, true
}

// canInsert reports whether a fresh node with id may be inserted under
// parentID.
func (t *Tree) canInsert(id, parentID string) bool {
	if id == rootID {
		return false
	}
	if _, taken := t.nodes[id]; taken {
		return false
	}
	return t.isFolderOrRoot(parentID)
}

// isFolderOrRoot reports whether id can own children.
func (t *Tree) isFolderOrRoot(id string) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	return id == rootID || n.item.Kind == KindFolder
}

// isDescendant reports whether id lies strictly inside ancestorID's subtree.
func (t *Tree) isDescendant(id, ancestorID string) bool {
	for id != rootID {
		n, ok := t.nodes[id]
		if !ok {
			return false
		}
		if n.parent == ancestorID {
			return true
		}
		id = n.parent
	}
	return false
}

// subtreeIDs returns id and every descendant id, breadth-first.
func (t *Tree) subtreeIDs(id string) []string {
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, t.nodes[cur].children...)
	}
	return out
}

// insertAt splices ids into parentID's child list at index. Callers have
// already validated the parent and clamped the index.
func (t *Tree) insertAt(parentID string, ids []string, index int) {
	p := t.nodes[parentID]
	children := make([]string, 0, len(p.children)+len(ids))
	children = append(children, p.children[:index]...)
	children = append(children, ids...)
	children = append(children, p.children[index:]...)
	p.children = children
}

// removeFromParent detaches n from its parent's child list. The node itself
// stays in the arena.
func (t *Tree) removeFromParent(n *node) {
	p := t.nodes[n.parent]
	for i, cid := range p.children {
		if cid == n.id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}
