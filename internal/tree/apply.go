package tree

import (
	"fmt"

	"github.com/roach88/foldersync/internal/change"
)

// Apply executes one change against the tree, returning false if the change
// does not apply to the current structure (unknown id, kind mismatch, and so
// on). The switch is exhaustive over the change union; a kind that reaches
// the default arm means the log writer and this reader disagree about the
// schema, which is a programming error and panics rather than being dropped.
func (t *Tree) Apply(c change.Change) bool {
	switch c.Kind {
	case change.KindCreateFolder:
		return t.CreateFolder(c.ID, c.Name, c.Parent)
	case change.KindCreateRunbook:
		return t.CreateRunbook(c.ID, c.Parent)
	case change.KindImportRunbooks:
		return t.ImportRunbooks(c.IDs, c.Parent)
	case change.KindRenameFolder:
		return t.RenameFolder(c.ID, c.Name)
	case change.KindDeleteFolder:
		return t.DeleteFolder(c.ID)
	case change.KindDeleteRunbook:
		return t.DeleteRunbook(c.ID)
	case change.KindMoveItems:
		return t.MoveItems(c.IDs, c.Parent, c.Index)
	default:
		panic(fmt.Sprintf("tree: unhandled change kind %q", c.Kind))
	}
}

// ApplyAll executes changes in order. Used to replay pending optimistic
// deltas onto a confirmed baseline; a delta that no longer applies (its
// target was deleted by a confirmed change) is skipped rather than aborting
// the replay, keeping the remaining deltas in their original order.
func (t *Tree) ApplyAll(changes []change.Change) {
	for _, c := range changes {
		t.Apply(c)
	}
}
