package stamfs

import "encoding/binary"

// dirRecord is the 22-byte packed directory record from spec.md §3.
type dirRecord struct {
	Ino     uint32
	NameLen uint8
	FType   DirEntryType
	Name    [MaxNameLen]byte
}

func decodeDirRecord(buf []byte) dirRecord {
	var r dirRecord
	r.Ino = binary.LittleEndian.Uint32(buf[0:4])
	r.NameLen = buf[4]
	r.FType = DirEntryType(buf[5])
	copy(r.Name[:], buf[6:6+MaxNameLen])
	return r
}

func (r dirRecord) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.Ino)
	buf[4] = r.NameLen
	buf[5] = uint8(r.FType)
	copy(buf[6:6+MaxNameLen], r.Name[:])
}

// dataBlock returns the directory's sole data-block number, held at index
// slot 0.
func (i *Inode) dataBlock() (uint32, error) {
	b, ok, err := i.MapOffset(0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ioErrorf("directory inode %d has no data block", i.Ino)
	}
	return b, nil
}

// GetFileByName implements spec.md §4.5's get_file_by_name.
func (dir *Inode) GetFileByName(name string) (uint32, error) {
	if len(name) > MaxNameLen {
		return 0, ErrNameTooLong
	}

	blockNum, err := dir.dataBlock()
	if err != nil {
		return 0, err
	}
	buf, err := dir.mount.cache.Read(blockNum)
	if err != nil {
		return 0, err
	}
	defer buf.Release()

	data := buf.Bytes()
	for pos := 0; pos+dirRecordSize <= BlockSize; pos += dirRecordSize {
		rec := decodeDirRecord(data[pos : pos+dirRecordSize])
		if rec.Ino == 0 {
			break
		}
		if rec.Ino == FreeMark {
			continue
		}
		if int(rec.NameLen) == len(name) && string(rec.Name[:rec.NameLen]) == name {
			return rec.Ino, nil
		}
	}
	return 0, nil
}

// MakeEmptyDir implements spec.md §4.5's make_empty_dir.
func (dir *Inode) MakeEmptyDir() error {
	blockNum, err := dir.mount.AllocBlock()
	if err != nil {
		return err
	}
	if blockNum == 0 {
		return ErrNoSpace
	}

	buf, err := dir.mount.cache.Read(blockNum)
	if err != nil {
		dir.mount.ReleaseBlock(blockNum)
		return err
	}
	mut := buf.GetMut()
	for j := range mut {
		mut[j] = 0
	}
	if err := buf.Release(); err != nil {
		return err
	}

	if err := dir.SetOffset(0, blockNum); err != nil {
		return err
	}

	dir.Size = BlockSize
	t := now32()
	dir.Mtime, dir.Ctime = t, t
	return dir.WriteInode(false)
}

// AddLink implements spec.md §4.5's add_link. Tombstones are never reused:
// the new record always goes into the first terminator slot, so a block
// holding only live records and tombstones rejects new names with
// ErrNoSpace.
func (parent *Inode) AddLink(child *Inode, name string) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}

	blockNum, err := parent.dataBlock()
	if err != nil {
		return err
	}
	buf, err := parent.mount.cache.Read(blockNum)
	if err != nil {
		return err
	}
	defer buf.Release()

	data := buf.Bytes()
	offset := -1
	for pos := 0; pos+dirRecordSize <= BlockSize; pos += dirRecordSize {
		if decodeDirRecord(data[pos : pos+dirRecordSize]).Ino == 0 {
			offset = pos
			break
		}
	}
	if offset < 0 {
		return ErrNoSpace
	}

	var rec dirRecord
	rec.Ino = child.Ino
	rec.NameLen = uint8(len(name))
	rec.FType = dirEntryTypeFromKind(child.Kind)
	copy(rec.Name[:], name)

	mut := buf.GetMut()
	rec.encode(mut[offset : offset+dirRecordSize])

	next := offset + dirRecordSize
	if next+dirRecordSize <= BlockSize {
		binary.LittleEndian.PutUint32(mut[next:next+4], 0)
	}

	t := now32()
	parent.Mtime, parent.Ctime = t, t
	return parent.WriteInode(false)
}

// DelLink implements spec.md §4.5's del_link.
func (parent *Inode) DelLink(name string) error {
	blockNum, err := parent.dataBlock()
	if err != nil {
		return err
	}
	buf, err := parent.mount.cache.Read(blockNum)
	if err != nil {
		return err
	}
	defer buf.Release()

	data := buf.Bytes()
	offset := -1
	for pos := 0; pos+dirRecordSize <= BlockSize; pos += dirRecordSize {
		rec := decodeDirRecord(data[pos : pos+dirRecordSize])
		if rec.Ino == 0 {
			break
		}
		if rec.Ino == FreeMark {
			continue
		}
		if int(rec.NameLen) == len(name) && string(rec.Name[:rec.NameLen]) == name {
			offset = pos
			break
		}
	}
	if offset < 0 {
		return ErrNotExist
	}

	mut := buf.GetMut()
	next := offset + dirRecordSize
	nextHasMore := next+dirRecordSize <= BlockSize && binary.LittleEndian.Uint32(mut[next:next+4]) != 0
	var tomb dirRecord
	if nextHasMore {
		tomb.Ino = FreeMark
	} else {
		tomb.Ino = 0
	}
	tomb.encode(mut[offset : offset+dirRecordSize])

	t := now32()
	parent.Mtime, parent.Ctime = t, t
	return parent.WriteInode(false)
}

// IsEmpty implements spec.md §4.5's is_empty.
func (dir *Inode) IsEmpty() (bool, error) {
	blockNum, err := dir.dataBlock()
	if err != nil {
		return false, err
	}
	buf, err := dir.mount.cache.Read(blockNum)
	if err != nil {
		return false, err
	}
	defer buf.Release()

	data := buf.Bytes()
	for pos := 0; pos+dirRecordSize <= BlockSize; pos += dirRecordSize {
		rec := decodeDirRecord(data[pos : pos+dirRecordSize])
		if rec.Ino == 0 {
			break
		}
		if rec.Ino != FreeMark {
			return false, nil
		}
	}
	return true, nil
}

// DirEntry is one entry of a Readdir result.
type DirEntry struct {
	Name string
	Ino  uint32
	Type DirEntryType
}

// Readdir implements spec.md §4.5's readdir as a single full-listing call:
// "." and ".." are synthesized first, then live, non-tombstone records in
// on-disk order.
func (dir *Inode) Readdir(parentIno uint32) ([]DirEntry, error) {
	entries := []DirEntry{
		{Name: ".", Ino: dir.Ino, Type: TypeDir},
		{Name: "..", Ino: parentIno, Type: TypeDir},
	}

	blockNum, err := dir.dataBlock()
	if err != nil {
		return nil, err
	}
	buf, err := dir.mount.cache.Read(blockNum)
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	data := buf.Bytes()
	for pos := 0; pos+dirRecordSize <= BlockSize; pos += dirRecordSize {
		rec := decodeDirRecord(data[pos : pos+dirRecordSize])
		if rec.Ino == 0 {
			break
		}
		if rec.Ino == FreeMark {
			continue
		}
		entries = append(entries, DirEntry{
			Name: string(rec.Name[:rec.NameLen]),
			Ino:  rec.Ino,
			Type: rec.FType,
		})
	}
	return entries, nil
}

// Create implements spec.md §4.5's create: new_inode then add_link; on
// add-link failure, undo and release the child via the L3 free path.
func (dir *Inode) Create(name string, mode uint16, uid, gid uint32) (*Inode, error) {
	child, err := NewInode(dir.mount, mode|S_IFREG, uid, gid)
	if err != nil {
		return nil, err
	}
	if err := dir.AddLink(child, name); err != nil {
		dir.mount.FreeInode(child)
		return nil, err
	}
	return child, nil
}

// Lookup implements spec.md §4.5's lookup. A missing name is not an error;
// it returns (nil, nil), "an empty binding".
func (dir *Inode) Lookup(name string) (*Inode, error) {
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	ino, err := dir.GetFileByName(name)
	if err != nil {
		return nil, err
	}
	if ino == 0 {
		return nil, nil
	}
	return dir.mount.ReadInode(ino)
}

// Unlink implements spec.md §4.5's unlink: del_link, decrement child
// nlink. Freeing the inode once nlink and open-count reach zero is left to
// the caller, per spec.md §6.
func (dir *Inode) Unlink(name string) error {
	ino, err := dir.GetFileByName(name)
	if err != nil {
		return err
	}
	if ino == 0 {
		return ErrNotExist
	}
	child, err := dir.mount.ReadInode(ino)
	if err != nil {
		return err
	}

	if err := dir.DelLink(name); err != nil {
		return err
	}
	child.NLink--
	return child.WriteInode(false)
}

// Mkdir implements spec.md §4.5's mkdir, undoing counts in reverse on
// failure after any step.
func (parent *Inode) Mkdir(name string, mode uint16, uid, gid uint32) (*Inode, error) {
	parent.NLink++
	if err := parent.WriteInode(false); err != nil {
		parent.NLink--
		return nil, err
	}

	child, err := NewInode(parent.mount, mode|S_IFDIR, uid, gid)
	if err != nil {
		parent.NLink--
		parent.WriteInode(false)
		return nil, err
	}
	child.NLink = 2
	if err := child.WriteInode(false); err != nil {
		parent.NLink--
		parent.WriteInode(false)
		parent.mount.FreeInode(child)
		return nil, err
	}

	if err := child.MakeEmptyDir(); err != nil {
		parent.NLink--
		parent.WriteInode(false)
		parent.mount.FreeInode(child)
		return nil, err
	}

	if err := parent.AddLink(child, name); err != nil {
		parent.NLink--
		parent.WriteInode(false)
		parent.mount.FreeInode(child)
		return nil, err
	}

	return child, nil
}

// Rmdir implements spec.md §4.5's rmdir.
func (parent *Inode) Rmdir(name string) error {
	child, err := parent.Lookup(name)
	if err != nil {
		return err
	}
	if child == nil {
		return ErrNotExist
	}

	empty, err := child.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return ErrNotEmpty
	}

	if err := parent.DelLink(name); err != nil {
		return err
	}
	child.Size = 0
	parent.NLink--
	child.NLink--
	if err := parent.WriteInode(false); err != nil {
		return err
	}
	return child.WriteInode(false)
}

// Rename implements spec.md §4.5/§8 S7: unsupported, always EPERM.
func (parent *Inode) Rename(oldName string, newParent *Inode, newName string) error {
	return ErrPermission
}
