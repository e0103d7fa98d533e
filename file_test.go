package stamfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBlockCreateVsNoCreate(t *testing.T) {
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)
	f, err := root.Create("f", 0644, 0, 0)
	require.NoError(t, err)

	noBlock, _, err := f.GetBlock(0, false)
	require.NoError(t, err)
	assert.Zero(t, noBlock, "unmapped offset with create=false reports no block")

	b, isNew, err := f.GetBlock(0, true)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotZero(t, b)

	b2, isNew2, err := f.GetBlock(0, true)
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Equal(t, b, b2)
}

func TestReadAtRoundTripAndEOFAtSize(t *testing.T) {
	m := newTestMount(t, 256)
	root, err := m.ReadInode(RootInodeNum)
	require.NoError(t, err)
	f, err := root.Create("f", 0644, 0, 0)
	require.NoError(t, err)

	payload := []byte("hello stamfs")
	n, err := f.WriteAt(payload, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	got := make([]byte, len(payload))
	n, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, got)

	_, err = f.ReadAt(make([]byte, 1), int64(f.Size))
	assert.ErrorIs(t, err, io.EOF)
}
