package stamfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) { // S2
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)

	child, err := root.Create("a", 0644, 0, 0)
	require.NoError(t, err)

	found, err := root.Lookup("a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, child.Ino, found.Ino)
	assert.Equal(t, uint16(0644|S_IFREG), found.Mode)
	assert.Equal(t, uint16(1), found.NLink)
	assert.Zero(t, found.Size)
}

func TestMkdirAndReaddir(t *testing.T) { // S3
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)

	d, err := root.Mkdir("d", 0755, 0, 0)
	require.NoError(t, err)

	rootEntries, err := root.Readdir(RootInodeNum)
	require.NoError(t, err)
	names := map[string]DirEntry{}
	for _, e := range rootEntries {
		names[e.Name] = e
	}
	assert.Equal(t, uint32(RootInodeNum), names["."].Ino)
	assert.Equal(t, uint32(RootInodeNum), names[".."].Ino)
	require.Contains(t, names, "d")
	assert.Equal(t, d.Ino, names["d"].Ino)
	assert.Equal(t, TypeDir, names["d"].Type)

	dEntries, err := d.Readdir(root.Ino)
	require.NoError(t, err)
	require.Len(t, dEntries, 2)
	assert.Equal(t, d.Ino, dEntries[0].Ino)
	assert.Equal(t, root.Ino, dEntries[1].Ino)
}

func TestUnlinkReclaimsInodeNumber(t *testing.T) { // S4
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)

	f, err := root.Create("f", 0644, 0, 0)
	require.NoError(t, err)
	fIno := f.Ino

	require.NoError(t, root.Unlink("f"))
	require.NoError(t, m.FreeInode(f))

	g, err := root.Create("g", 0644, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, fIno, g.Ino, "g must receive the inode number f held")
}

func TestAddLinkDelLinkIdempotence(t *testing.T) { // property 4
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)

	child, err := root.Create("x", 0644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, root.Unlink("x"))
	require.NoError(t, m.FreeInode(child))

	ino, err := root.GetFileByName("x")
	require.NoError(t, err)
	assert.Zero(t, ino)

	empty, err := root.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestFullDirectoryENOSPC(t *testing.T) { // S6
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)

	var children []*Inode
	for i := 0; i < recordsPerBlock; i++ {
		c, err := root.Create(fmt.Sprintf("f%02d", i), 0644, 0, 0)
		require.NoErrorf(t, err, "entry %d", i)
		children = append(children, c)
	}

	_, err = root.Create("overflow", 0644, 0, 0)
	assert.ErrorIs(t, err, ErrNoSpace)

	require.NoError(t, root.DelLink("f10"))

	_, err = root.Create("still-no-room", 0644, 0, 0)
	assert.ErrorIs(t, err, ErrNoSpace, "tombstones are never reused, so the block stays full")
}

func TestRenameIsUnsupported(t *testing.T) { // S7
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)

	err = root.Rename("a", root, "b")
	assert.ErrorIs(t, err, ErrPermission)
}
