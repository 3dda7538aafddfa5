package change

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds_CoversUnion(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, 7)

	seen := make(map[Kind]bool)
	for _, k := range kinds {
		assert.True(t, k.Valid(), "kind %q should be valid", k)
		assert.False(t, seen[k], "kind %q listed twice", k)
		seen[k] = true
	}
}

func TestKind_Valid_RejectsUnknown(t *testing.T) {
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("truncate_tree").Valid())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Change
		wantErr bool
	}{
		{"create folder ok", Change{Kind: KindCreateFolder, ID: "f1", Name: "Folder 1"}, false},
		{"create folder missing name", Change{Kind: KindCreateFolder, ID: "f1"}, true},
		{"create runbook ok", Change{Kind: KindCreateRunbook, ID: "r1", Parent: "f1"}, false},
		{"create runbook missing id", Change{Kind: KindCreateRunbook}, true},
		{"import ok", Change{Kind: KindImportRunbooks, IDs: []string{"r1", "r2"}}, false},
		{"import empty", Change{Kind: KindImportRunbooks}, true},
		{"rename ok", Change{Kind: KindRenameFolder, ID: "f1", Name: "Renamed"}, false},
		{"rename missing name", Change{Kind: KindRenameFolder, ID: "f1"}, true},
		{"delete folder ok", Change{Kind: KindDeleteFolder, ID: "f1"}, false},
		{"delete runbook ok", Change{Kind: KindDeleteRunbook, ID: "r1"}, false},
		{"delete missing id", Change{Kind: KindDeleteFolder}, true},
		{"move ok", Change{Kind: KindMoveItems, IDs: []string{"r1"}, Parent: "f2", Index: 1}, false},
		{"move empty ids", Change{Kind: KindMoveItems, Parent: "f2"}, true},
		{"move negative index", Change{Kind: KindMoveItems, IDs: []string{"r1"}, Index: -1}, true},
		{"unknown kind", Change{Kind: "nuke_everything", ID: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	in := Change{Kind: KindMoveItems, IDs: []string{"a", "b"}, Parent: "f1", Index: 2}

	data, err := Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshal_UnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"defragment","id":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown change kind")
}

func TestMarshal_RejectsInvalid(t *testing.T) {
	_, err := Marshal(Change{Kind: KindCreateFolder})
	assert.Error(t, err)
}
