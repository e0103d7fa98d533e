package stamfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMount(t *testing.T, blocks uint32) *Mount {
	t.Helper()
	dev := &memDevice{data: make([]byte, int(blocks)*BlockSize)}
	require.NoError(t, Format(dev, blocks))
	m, err := MountImage(dev)
	require.NoError(t, err)
	t.Cleanup(func() { m.PutSuper() })
	return m
}

func TestAllocReleaseBlockRoundTrip(t *testing.T) {
	m := newTestMount(t, 256)

	before := m.sb.FreeBlocksCount
	b1, err := m.AllocBlock()
	require.NoError(t, err)
	assert.NotZero(t, b1)
	assert.Equal(t, before-1, m.sb.FreeBlocksCount)

	b2, err := m.AllocBlock()
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2, "two successful allocations must not return the same block")

	require.NoError(t, m.ReleaseBlock(b1))
	assert.Equal(t, before-1, m.sb.FreeBlocksCount)

	b3, err := m.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, b1, b3, "first-fit should reuse the just-released block")
}

func TestAllocBlockExhaustion(t *testing.T) {
	m := newTestMount(t, 8) // HUB+1=7 used at format, 1 free block left

	b, err := m.AllocBlock()
	require.NoError(t, err)
	assert.NotZero(t, b)
	assert.Zero(t, m.sb.FreeBlocksCount)

	zero, err := m.AllocBlock()
	require.NoError(t, err)
	assert.Zero(t, zero, "alloc_block must return 0 once free_blocks_count is 0")
}

func TestAllocInodeNumRoundTrip(t *testing.T) {
	m := newTestMount(t, 256)

	before := m.sb.FreeInodesCount
	ino, err := m.AllocInodeNum(42)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ino, "root occupies inode 1; next allocation is 2")
	assert.Equal(t, before-1, m.sb.FreeInodesCount)
	assert.Equal(t, uint32(42), m.InodeToBlock(ino))

	require.NoError(t, m.ReleaseInodeNum(ino))
	assert.Equal(t, before, m.sb.FreeInodesCount)
	assert.Zero(t, m.InodeToBlock(ino))
}

func TestReleaseRootInodeIsFatal(t *testing.T) {
	m := newTestMount(t, 256)
	assert.Panics(t, func() { m.ReleaseInodeNum(RootInodeNum) })
}

func TestReleaseReservedBlockIsFatal(t *testing.T) {
	m := newTestMount(t, 256)
	assert.Panics(t, func() { m.ReleaseBlock(FreeListNum) })
}
