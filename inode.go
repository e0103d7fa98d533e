package stamfs

import (
	"encoding/binary"
	"time"
)

// InodeKind is the tagged-dispatch variant spec.md §9 calls for, replacing
// the original's per-type operation-table v-tables.
type InodeKind uint8

const (
	KindFile InodeKind = iota + 1
	KindDir
)

// Inode is the in-memory representation of a live inode: its stored fields
// plus the per-inode metadata (inode_block_num, index_block_num) spec.md
// §4.3 describes as attached to whatever the adapter uses to represent an
// inode.
type Inode struct {
	mount *Mount

	Ino   uint32
	Kind  InodeKind
	Mode  uint16
	NLink uint16
	UID   uint32
	GID   uint32
	Size  uint32
	Atime uint32
	Mtime uint32
	Ctime uint32
	Blocks uint32

	inodeBlock uint32
	indexBlock uint32
}

func kindFromMode(mode uint16) InodeKind {
	if uint32(mode)&S_IFMT == S_IFDIR {
		return KindDir
	}
	return KindFile
}

func (i *Inode) marshal(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], i.Mode)
	binary.LittleEndian.PutUint16(buf[2:4], i.NLink)
	binary.LittleEndian.PutUint32(buf[4:8], i.UID)
	binary.LittleEndian.PutUint32(buf[8:12], i.GID)
	binary.LittleEndian.PutUint32(buf[12:16], i.Size)
	binary.LittleEndian.PutUint32(buf[16:20], i.Atime)
	binary.LittleEndian.PutUint32(buf[20:24], i.Mtime)
	binary.LittleEndian.PutUint32(buf[24:28], i.Ctime)
	binary.LittleEndian.PutUint32(buf[28:32], i.Blocks)
	binary.LittleEndian.PutUint32(buf[32:36], i.indexBlock)
}

func unmarshalInode(buf []byte) (mode, nlink uint16, uid, gid, size, atime, mtime, ctime, numBlocks, indexBlock uint32) {
	mode = binary.LittleEndian.Uint16(buf[0:2])
	nlink = binary.LittleEndian.Uint16(buf[2:4])
	uid = binary.LittleEndian.Uint32(buf[4:8])
	gid = binary.LittleEndian.Uint32(buf[8:12])
	size = binary.LittleEndian.Uint32(buf[12:16])
	atime = binary.LittleEndian.Uint32(buf[16:20])
	mtime = binary.LittleEndian.Uint32(buf[20:24])
	ctime = binary.LittleEndian.Uint32(buf[24:28])
	numBlocks = binary.LittleEndian.Uint32(buf[28:32])
	indexBlock = binary.LittleEndian.Uint32(buf[32:36])
	return
}

func now32() uint32 {
	return uint32(time.Now().Unix())
}

// ReadInode implements spec.md §4.3's read_inode: load the inode record,
// populate the in-memory inode, attach its metadata, dispatch on S_IFMT.
func (m *Mount) ReadInode(ino uint32) (*Inode, error) {
	m.mu.Lock()
	if cached, ok := m.inodes[ino]; ok {
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	blockNum := m.InodeToBlock(ino)
	if blockNum == 0 {
		return nil, ErrInodeLoad
	}

	buf, err := m.cache.Read(blockNum)
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	data := buf.Bytes()
	if len(data) < inodeRecordSize {
		return nil, ioErrorf("inode %d record truncated", ino)
	}
	mode, nlink, uid, gid, size, atime, mtime, ctime, numBlocks, indexBlock := unmarshalInode(data)

	inode := &Inode{
		mount:      m,
		Ino:        ino,
		Kind:       kindFromMode(uint16(mode)),
		Mode:       uint16(mode),
		NLink:      uint16(nlink),
		UID:        uid,
		GID:        gid,
		Size:       size,
		Atime:      atime,
		Mtime:      mtime,
		Ctime:      ctime,
		Blocks:     numBlocks,
		inodeBlock: blockNum,
		indexBlock: indexBlock,
	}

	m.mu.Lock()
	m.inodes[ino] = inode
	m.mu.Unlock()

	return inode, nil
}

// WriteInode implements spec.md §4.3's write_inode: re-load the inode's
// block (it may have been evicted), overwrite all fields, mark dirty. If
// doSync, force a write-back and wait.
func (i *Inode) WriteInode(doSync bool) error {
	buf, err := i.mount.cache.Read(i.inodeBlock)
	if err != nil {
		return err
	}
	i.marshal(buf.GetMut())

	if doSync {
		err := buf.Sync()
		buf.Release()
		return err
	}
	return buf.Release()
}

// NewInode implements spec.md §4.3's new_inode: allocate an inode block, an
// index block, and an inode number; zero the index block; initialize
// fields; install into the in-memory table. Any failure along the chain
// rolls back whichever subset was already allocated, in reverse order.
func NewInode(m *Mount, mode uint16, uid, gid uint32) (*Inode, error) {
	inodeBlock, err := m.AllocBlock()
	if err != nil {
		return nil, err
	}
	if inodeBlock == 0 {
		return nil, ErrNoSpace
	}

	indexBlock, err := m.AllocBlock()
	if err != nil {
		m.ReleaseBlock(inodeBlock)
		return nil, err
	}
	if indexBlock == 0 {
		m.ReleaseBlock(inodeBlock)
		return nil, ErrNoSpace
	}

	ino, err := m.AllocInodeNum(inodeBlock)
	if err != nil {
		m.ReleaseBlock(indexBlock)
		m.ReleaseBlock(inodeBlock)
		return nil, err
	}
	if ino == 0 {
		m.ReleaseBlock(indexBlock)
		m.ReleaseBlock(inodeBlock)
		return nil, ErrNoSpace
	}

	idxBuf, err := m.cache.Read(indexBlock)
	if err != nil {
		m.ReleaseInodeNum(ino)
		m.ReleaseBlock(indexBlock)
		m.ReleaseBlock(inodeBlock)
		return nil, err
	}
	zeroed := idxBuf.GetMut()
	for j := range zeroed {
		zeroed[j] = 0
	}
	if err := idxBuf.Release(); err != nil {
		m.ReleaseInodeNum(ino)
		m.ReleaseBlock(indexBlock)
		m.ReleaseBlock(inodeBlock)
		return nil, err
	}

	t := now32()
	inode := &Inode{
		mount:      m,
		Ino:        ino,
		Kind:       kindFromMode(mode),
		Mode:       mode,
		NLink:      1,
		UID:        uid,
		GID:        gid,
		Size:       0,
		Atime:      t,
		Mtime:      t,
		Ctime:      t,
		Blocks:     0,
		inodeBlock: inodeBlock,
		indexBlock: indexBlock,
	}

	if err := inode.WriteInode(false); err != nil {
		m.ReleaseInodeNum(ino)
		m.ReleaseBlock(indexBlock)
		m.ReleaseBlock(inodeBlock)
		return nil, err
	}

	m.mu.Lock()
	m.inodes[ino] = inode
	m.mu.Unlock()

	return inode, nil
}

// FreeInode implements spec.md §4.3's free_inode: release the inode number
// first (removing the only disk-level reference to the two metadata
// blocks), then the index block, then the inode block.
func (m *Mount) FreeInode(i *Inode) error {
	if err := m.ReleaseInodeNum(i.Ino); err != nil {
		return err
	}
	m.ReleaseBlock(i.indexBlock)
	m.ReleaseBlock(i.inodeBlock)

	m.mu.Lock()
	delete(m.inodes, i.Ino)
	m.mu.Unlock()
	return nil
}

// Truncate implements spec.md §4.3's truncate: free every data block
// wholly beyond i_size, leaving the straddling block's tail bytes stale
// (masked by i_size on read).
func (i *Inode) Truncate() error {
	buf, err := i.mount.cache.Read(i.indexBlock)
	if err != nil {
		return err
	}

	k := int((i.Size + BlockSize - 1) / BlockSize)
	freed := uint32(0)
	data := buf.Bytes()
	var toFree []uint32
	for slot := k; slot < BlockPtrsPerBP; slot++ {
		v := getU32(data, slot)
		if v != 0 && v != FreeMark {
			toFree = append(toFree, v)
		}
	}
	if len(toFree) > 0 {
		mut := buf.GetMut()
		for slot := k; slot < BlockPtrsPerBP; slot++ {
			v := getU32(mut, slot)
			if v != 0 && v != FreeMark {
				setU32(mut, slot, FreeMark)
				freed++
			}
		}
	}
	if err := buf.Release(); err != nil {
		return err
	}
	for _, v := range toFree {
		i.mount.ReleaseBlock(v)
	}

	i.Blocks -= freed
	t := now32()
	i.Mtime, i.Ctime = t, t
	return i.WriteInode(false)
}

// ClearInode implements spec.md §4.3's clear_inode: release in-memory
// metadata, touching no disk state.
func (m *Mount) ClearInode(i *Inode) {
	m.mu.Lock()
	delete(m.inodes, i.Ino)
	m.mu.Unlock()
}
