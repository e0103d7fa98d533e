package stamfs

import "encoding/binary"

func getU32(buf []byte, slot int) uint32 {
	return binary.LittleEndian.Uint32(buf[slot*4 : slot*4+4])
}

func setU32(buf []byte, slot int, v uint32) {
	binary.LittleEndian.PutUint32(buf[slot*4:slot*4+4], v)
}

// AllocBlock implements spec.md §4.2's alloc_block. Returns 0 iff
// free_blocks_count == 0. The error result is always nil: the superblock is
// updated in its pinned buffer and written back when the mount is released.
func (m *Mount) AllocBlock() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocBlockLocked()
}

func (m *Mount) allocBlockLocked() (uint32, error) {
	if m.sb.FreeBlocksCount == 0 {
		return 0, nil
	}

	var blockNum uint32
	if getU32(m.flBytes, 0) != 0 {
		// Scan for the first slot that is not a tombstone: either a real
		// block number (use it) or the 0 terminator (nothing usable).
		i := 0
		for ; i < BlockPtrsPerBP; i++ {
			if getU32(m.flBytes, i) != FreeMark {
				break
			}
		}
		if i < BlockPtrsPerBP {
			v := getU32(m.flBytes, i)
			if v != 0 && v != FreeMark {
				blockNum = v
				if i+1 == BlockPtrsPerBP || getU32(m.flBytes, i+1) == 0 {
					setU32(m.flBytes, i, 0)
				} else {
					setU32(m.flBytes, i, FreeMark)
				}
			}
		}
	}

	if blockNum == 0 {
		m.sb.HighestUsedBlockNum++
		blockNum = m.sb.HighestUsedBlockNum
	}

	m.sb.FreeBlocksCount--
	m.writeSuperLocked()
	return blockNum, nil
}

// ReleaseBlock implements spec.md §4.2's release_block. n <= LastHardcoded
// is a fatal programmer error, as is a full free-list.
func (m *Mount) ReleaseBlock(n uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseBlockLocked(n)
	return nil
}

func (m *Mount) releaseBlockLocked(n uint32) {
	if n <= LastHardcoded {
		fatalf("stamfs: attempt to release reserved block %d", n)
	}

	if n == m.sb.HighestUsedBlockNum {
		m.sb.HighestUsedBlockNum--
	} else {
		i := 0
		for ; i < BlockPtrsPerBP; i++ {
			v := getU32(m.flBytes, i)
			if v == 0 || v == FreeMark {
				break
			}
		}
		if i >= BlockPtrsPerBP {
			fatalf("stamfs: free-list overflow releasing block %d", n)
		}
		if getU32(m.flBytes, i) == 0 && i+1 < BlockPtrsPerBP {
			setU32(m.flBytes, i+1, 0)
		}
		setU32(m.flBytes, i, n)
	}

	m.sb.FreeBlocksCount++
	m.writeSuperLocked()
}

// AllocInodeNum implements spec.md §4.2's alloc_inode_num.
func (m *Mount) AllocInodeNum(inodeBlock uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sb.FreeInodesCount == 0 {
		return 0, nil
	}

	i := 0
	for ; i < MaxInodeNum-1; i++ {
		if getU32(m.idxBytes, i) == 0 {
			break
		}
	}
	if i >= MaxInodeNum-1 {
		return 0, nil
	}

	setU32(m.idxBytes, i, inodeBlock)
	m.sb.FreeInodesCount--
	m.writeSuperLocked()
	return uint32(i + 1), nil
}

// ReleaseInodeNum implements spec.md §4.2's release_inode_num. ino == 1
// (root) is fatal.
func (m *Mount) ReleaseInodeNum(ino uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ino == RootInodeNum {
		fatalf("stamfs: attempt to release root inode")
	}

	setU32(m.idxBytes, int(ino-1), 0)
	m.sb.FreeInodesCount++
	m.writeSuperLocked()
	return nil
}

// InodeToBlock implements spec.md §4.2's inode_to_block.
func (m *Mount) InodeToBlock(ino uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ino < 1 || ino >= MaxInodeNum {
		return 0
	}
	return getU32(m.idxBytes, int(ino-1))
}
