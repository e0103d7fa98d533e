package stamfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathWalksNestedDirectories(t *testing.T) {
	m := newTestMount(t, 256)

	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)
	d, err := root.Mkdir("d", 0755, 0, 0)
	require.NoError(t, err)
	_, err = d.Create("f", 0644, 0, 0)
	require.NoError(t, err)

	got, err := m.Resolve("/d/f")
	require.NoError(t, err)
	require.NotNil(t, got)

	parent, name, err := m.ParentInode("/d/f")
	require.NoError(t, err)
	assert.Equal(t, d.Ino, parent.Ino)
	assert.Equal(t, "f", name)
}

func TestResolveMissingPathIsNotExist(t *testing.T) {
	m := newTestMount(t, 256)
	_, err := m.Resolve("/nope")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestSyncFileForcesWriteBack(t *testing.T) {
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)
	f, err := root.Create("f", 0644, 0, 0)
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("data"), 0)
	require.NoError(t, err)
	require.NoError(t, f.SyncFile(false))
}
