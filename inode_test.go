package stamfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInodeWriteReadRoundTrip(t *testing.T) {
	m := newTestMount(t, 256)

	child, err := NewInode(m, S_IFREG|0644, 7, 9)
	require.NoError(t, err)

	child.Size = 12345
	child.Atime, child.Mtime, child.Ctime = 1, 2, 3
	require.NoError(t, child.WriteInode(true))

	m.ClearInode(child) // force a fresh disk read, not the in-memory cache
	reread, err := m.ReadInode(child.Ino)
	require.NoError(t, err)

	assert.Equal(t, child.Mode, reread.Mode)
	assert.Equal(t, child.NLink, reread.NLink)
	assert.Equal(t, child.UID, reread.UID)
	assert.Equal(t, child.GID, reread.GID)
	assert.Equal(t, child.Size, reread.Size)
	assert.Equal(t, child.Atime, reread.Atime)
	assert.Equal(t, child.Mtime, reread.Mtime)
	assert.Equal(t, child.Ctime, reread.Ctime)
	assert.Equal(t, child.Blocks, reread.Blocks)
}

func TestNewInodeThenFreeReclaimsResources(t *testing.T) {
	m := newTestMount(t, 256)

	freeBlocksBefore := m.sb.FreeBlocksCount
	freeInodesBefore := m.sb.FreeInodesCount

	child, err := NewInode(m, S_IFREG|0644, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, freeBlocksBefore-2, m.sb.FreeBlocksCount)
	assert.Equal(t, freeInodesBefore-1, m.sb.FreeInodesCount)

	require.NoError(t, m.FreeInode(child))
	assert.Equal(t, freeBlocksBefore, m.sb.FreeBlocksCount)
	assert.Equal(t, freeInodesBefore, m.sb.FreeInodesCount)
}

func TestTruncateFreesTrailingBlocksKeepsStraddlingBlock(t *testing.T) {
	m := newTestMount(t, 256)
	child, err := NewInode(m, S_IFREG|0644, 0, 0)
	require.NoError(t, err)

	buf := make([]byte, BlockSize)
	for i := range buf {
		buf[i] = 0xAB
	}
	for off := 0; off < 3*BlockSize; off += BlockSize {
		n, err := child.WriteAt(buf, int64(off))
		require.NoError(t, err)
		require.Equal(t, BlockSize, n)
	}
	assert.Equal(t, uint32(3), child.Blocks)

	child.Size = 1500
	blocksBefore := m.sb.FreeBlocksCount
	require.NoError(t, child.Truncate())
	assert.Equal(t, uint32(2), child.Blocks, "block 1 straddles the truncation point and stays mapped")
	assert.Equal(t, blocksBefore+1, m.sb.FreeBlocksCount)

	_, ok, err := child.MapOffset(1)
	require.NoError(t, err)
	assert.True(t, ok, "the straddling block must remain mapped")

	_, ok, err = child.MapOffset(2)
	require.NoError(t, err)
	assert.False(t, ok, "map_offset past truncation must report no block")
}
