package stamfs

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Mount is the allocator-owning component spec.md §9 calls for: it holds
// pinned references to the superblock, inode-index, and free-list blocks
// for the whole mount lifetime, and is the single owner through which every
// L2 mutation passes. It also plays the role of the VFS-adapter (§6) for
// this module, since there is no real host kernel to supply one.
type Mount struct {
	mu sync.Mutex // mount-wide exclusion lock, spec.md §5

	cache *bufferCache
	sb    *Superblock

	sbBuf    *Buffer
	idxBuf   *Buffer
	flBuf    *Buffer
	idxBytes []byte // raw bytes of block 2, MaxInodeNum-1 u32 entries
	flBytes  []byte // raw bytes of block 3, BlockPtrsPerBP u32 entries

	inodes map[uint32]*Inode // in-memory inode table
}

// MountImage reads the superblock, inode-index, and free-list blocks from
// dev and returns a ready Mount. A superblock whose magic does not match
// aborts the mount with ErrCorrupt (read_super, spec.md §6).
func MountImage(dev BlockDevice) (*Mount, error) {
	cache, err := newBufferCache(dev, BlockSize)
	if err != nil {
		return nil, err
	}

	sbBuf, err := cache.Read(SuperblockNum)
	if err != nil {
		return nil, err
	}
	sb, err := unmarshalSuperblock(sbBuf.Bytes())
	if err != nil {
		sbBuf.Release()
		return nil, err
	}

	idxBuf, err := cache.Read(InodeIndexNum)
	if err != nil {
		sbBuf.Release()
		return nil, err
	}
	flBuf, err := cache.Read(FreeListNum)
	if err != nil {
		idxBuf.Release()
		sbBuf.Release()
		return nil, err
	}

	m := &Mount{
		cache:    cache,
		sb:       sb,
		sbBuf:    sbBuf,
		idxBuf:   idxBuf,
		flBuf:    flBuf,
		idxBytes: idxBuf.GetMut(),
		flBytes:  flBuf.GetMut(),
		inodes:   make(map[uint32]*Inode),
	}
	logrus.WithFields(logrus.Fields{
		"blocks": sb.BlocksCount,
		"inodes": sb.InodesCount,
	}).Debug("stamfs: mounted")
	return m, nil
}

// PutSuper releases the mount's pinned metadata buffers, flushing any
// dirty superblock-resident state.
func (m *Mount) PutSuper() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, b := range []*Buffer{m.flBuf, m.idxBuf, m.sbBuf} {
		if err := b.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// writeSuperLocked persists the in-memory superblock fields into its
// pinned buffer. Caller must hold m.mu.
func (m *Mount) writeSuperLocked() {
	m.sb.marshal(m.sbBuf.GetMut())
}

// StatfsResult mirrors the fields spec.md §6 lists for statfs.
type StatfsResult struct {
	Type        uint32
	BlockSize   uint32
	Blocks      uint32
	BlocksFree  uint32
	BlocksAvail uint32
	Files       uint32
	FilesFree   uint32
	NameLen     uint32
}

// Statfs reports filesystem-wide usage, supplementing spec.md's named
// modules per SPEC_FULL.md's SUPPLEMENTED FEATURES section.
func (m *Mount) Statfs() StatfsResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	return StatfsResult{
		Type:        Magic,
		BlockSize:   BlockSize,
		Blocks:      m.sb.BlocksCount,
		BlocksFree:  m.sb.FreeBlocksCount,
		BlocksAvail: m.sb.FreeBlocksCount,
		Files:       m.sb.InodesCount,
		FilesFree:   m.sb.FreeInodesCount,
		NameLen:     MaxNameLen,
	}
}
