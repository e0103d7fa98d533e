package stamfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAndMountStatfs(t *testing.T) { // S1
	dev := &memDevice{data: make([]byte, 256*BlockSize)}
	require.NoError(t, Format(dev, 256))

	m, err := MountImage(dev)
	require.NoError(t, err)
	defer m.PutSuper()

	sf := m.Statfs()
	assert.Equal(t, uint32(Magic), sf.Type)
	assert.Equal(t, uint32(256), sf.Blocks)
	assert.Equal(t, uint32(256-(HUB+1)), sf.BlocksFree)
	assert.Equal(t, uint32(MaxInodeNum-1), sf.FilesFree)
	assert.Equal(t, uint32(MaxInodeNum), sf.Files)
}

func TestFormatRejectsTooSmallDevice(t *testing.T) {
	dev := &memDevice{data: make([]byte, 3*BlockSize)}
	err := Format(dev, 3)
	assert.Error(t, err)
}

func TestFormatRootDirectoryIsMountable(t *testing.T) {
	dev := &memDevice{data: make([]byte, 256*BlockSize)}
	require.NoError(t, Format(dev, 256))

	m, err := MountImage(dev)
	require.NoError(t, err)
	defer m.PutSuper()

	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)
	assert.Equal(t, uint16(S_IFDIR|0755), root.Mode)
	assert.Equal(t, uint16(1), root.NLink)
	assert.Equal(t, uint32(BlockSize), root.Size)

	empty, err := root.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}
