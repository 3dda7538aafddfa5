package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foldersync/internal/change"
)

func TestApply_CoversEveryKind(t *testing.T) {
	// One applicable change per kind; iterating change.Kinds() proves the
	// dispatch handles the whole union without hitting the panic arm.
	byKind := map[change.Kind]func(*Tree) change.Change{
		change.KindCreateFolder: func(*Tree) change.Change {
			return change.Change{Kind: change.KindCreateFolder, ID: "f9", Name: "New"}
		},
		change.KindCreateRunbook: func(*Tree) change.Change {
			return change.Change{Kind: change.KindCreateRunbook, ID: "r9", Parent: "f1"}
		},
		change.KindImportRunbooks: func(*Tree) change.Change {
			return change.Change{Kind: change.KindImportRunbooks, IDs: []string{"r8"}, Parent: "f1"}
		},
		change.KindRenameFolder: func(*Tree) change.Change {
			return change.Change{Kind: change.KindRenameFolder, ID: "f1", Name: "Renamed"}
		},
		change.KindDeleteFolder: func(*Tree) change.Change {
			return change.Change{Kind: change.KindDeleteFolder, ID: "f3"}
		},
		change.KindDeleteRunbook: func(*Tree) change.Change {
			return change.Change{Kind: change.KindDeleteRunbook, ID: "i1"}
		},
		change.KindMoveItems: func(*Tree) change.Change {
			return change.Change{Kind: change.KindMoveItems, IDs: []string{"i2"}, Parent: "f1", Index: 0}
		},
	}

	for _, kind := range change.Kinds() {
		build, ok := byKind[kind]
		require.True(t, ok, "no applicable change for kind %q", kind)

		tr := buildWorkspace(t)
		assert.True(t, tr.Apply(build(tr)), "kind %q should apply", kind)
	}
}

func TestApply_UnknownKindPanics(t *testing.T) {
	tr := New()
	assert.Panics(t, func() {
		tr.Apply(change.Change{Kind: "defragment"})
	})
}

func TestApply_DomainFailureIsFalse(t *testing.T) {
	tr := New()
	ok := tr.Apply(change.Change{Kind: change.KindDeleteFolder, ID: "missing"})
	assert.False(t, ok)
}

func TestApplyAll_SkipsStaleDeltas(t *testing.T) {
	tr := buildWorkspace(t)

	// The rename targets a folder the preceding delete already removed; the
	// replay skips it and still applies the final change.
	tr.ApplyAll([]change.Change{
		{Kind: change.KindDeleteFolder, ID: "f1"},
		{Kind: change.KindRenameFolder, ID: "f3", Name: "stale"},
		{Kind: change.KindRenameFolder, ID: "f2", Name: "fresh"},
	})

	_, ok := tr.Item("f3")
	assert.False(t, ok)
	item, _ := tr.Item("f2")
	assert.Equal(t, "fresh", item.Name)
}
