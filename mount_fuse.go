//go:build fuse

package stamfs

import (
	"sync"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// FuseFS is a thin fuse.RawFileSystem binding over *Mount, adapted from the
// teacher's inode_fuse.go (Lookup/Open/OpenDir/ReadDir wiring a
// fuse.RawFileSystem) down to STAMFS's flat, uncompressed inode model. It
// plays the "host kernel/userspace mounting layer" role spec.md §1 lists as
// an external collaborator.
//
// ".." is never a stored directory record (spec.md §3/§4.5), so ReadDir
// cannot recover a directory's parent by looking it up on disk. FuseFS
// instead tracks parent ino by child ino itself, populated every time the
// kernel learns of a directory via Lookup/Mkdir/Create — the same NodeId
// the kernel already supplies on the call that produced the child's handle.
type FuseFS struct {
	fuse.RawFileSystem
	mount *Mount

	parentsMu sync.Mutex
	parents   map[uint32]uint32
}

// NewFuseFS wraps m for mounting with go-fuse.
func NewFuseFS(m *Mount) *FuseFS {
	return &FuseFS{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		mount:         m,
		parents:       map[uint32]uint32{RootInodeNum: RootInodeNum},
	}
}

func (f *FuseFS) fillEntry(i *Inode, out *fuse.EntryOut) {
	out.NodeId = uint64(i.Ino)
	out.Attr.Ino = uint64(i.Ino)
	out.Attr.Size = uint64(i.Size)
	out.Attr.Mode = ModeToUnix(UnixToMode(uint32(i.Mode)))
	out.Attr.Nlink = uint32(i.NLink)
	out.Attr.Uid = i.UID
	out.Attr.Gid = i.GID
	out.Attr.Atime = i.Atime
	out.Attr.Mtime = i.Mtime
	out.Attr.Ctime = i.Ctime
}

// rememberParent records that child's parent directory is parentIno, so a
// later ReadDir on child can synthesize "..".
func (f *FuseFS) rememberParent(child *Inode, parentIno uint32) {
	if child.Kind != KindDir {
		return
	}
	f.parentsMu.Lock()
	f.parents[child.Ino] = parentIno
	f.parentsMu.Unlock()
}

func (f *FuseFS) parentOf(ino uint32) uint32 {
	f.parentsMu.Lock()
	defer f.parentsMu.Unlock()
	if p, ok := f.parents[ino]; ok {
		return p
	}
	return ino
}

// Lookup resolves name within the directory identified by input.NodeId.
func (f *FuseFS) Lookup(cancel <-chan struct{}, input *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	dir, err := f.mount.ReadInode(uint32(input.NodeId))
	if err != nil {
		return fuse.ENOENT
	}
	child, err := dir.Lookup(name)
	if err != nil || child == nil {
		return fuse.ENOENT
	}
	f.rememberParent(child, dir.Ino)
	f.fillEntry(child, out)
	return fuse.OK
}

// GetAttr fills out the attributes of the inode identified by input.NodeId.
func (f *FuseFS) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	i, err := f.mount.ReadInode(uint32(input.NodeId))
	if err != nil {
		return fuse.ENOENT
	}
	out.Ino = uint64(i.Ino)
	out.Size = uint64(i.Size)
	out.Mode = ModeToUnix(UnixToMode(uint32(i.Mode)))
	out.Nlink = uint32(i.NLink)
	out.Uid = i.UID
	out.Gid = i.GID
	return fuse.OK
}

// Open returns a status; STAMFS has no per-open state beyond the inode
// itself, so this is a no-op success.
func (f *FuseFS) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	return fuse.OK
}

// Read serves a read request directly from the inode's blocks.
func (f *FuseFS) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	i, err := f.mount.ReadInode(uint32(input.NodeId))
	if err != nil {
		return nil, fuse.ENOENT
	}
	n, err := i.ReadAt(buf, int64(input.Offset))
	if err != nil && n == 0 {
		return nil, fuse.EIO
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

// ReadDir lists the directory identified by input.NodeId.
func (f *FuseFS) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	dir, err := f.mount.ReadInode(uint32(input.NodeId))
	if err != nil {
		return fuse.ENOENT
	}

	entries, err := dir.Readdir(f.parentOf(dir.Ino))
	if err != nil {
		return fuse.EIO
	}
	for _, e := range entries {
		out.AddDirEntry(fuse.DirEntry{Ino: uint64(e.Ino), Mode: uint32(e.Type.dtype()) << 12, Name: e.Name})
	}
	return fuse.OK
}

// Mkdir creates a subdirectory.
func (f *FuseFS) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	dir, err := f.mount.ReadInode(uint32(input.NodeId))
	if err != nil {
		return fuse.ENOENT
	}
	child, err := dir.Mkdir(name, uint16(input.Mode)&0777, input.Owner.Uid, input.Owner.Gid)
	if err != nil {
		return fuse.ToStatus(err)
	}
	f.rememberParent(child, dir.Ino)
	f.fillEntry(child, out)
	return fuse.OK
}

// Create creates a regular file.
func (f *FuseFS) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	dir, err := f.mount.ReadInode(uint32(input.NodeId))
	if err != nil {
		return fuse.ENOENT
	}
	child, err := dir.Create(name, uint16(input.Mode)&0777, input.Owner.Uid, input.Owner.Gid)
	if err != nil {
		return fuse.ToStatus(err)
	}
	f.rememberParent(child, dir.Ino)
	f.fillEntry(child, &out.EntryOut)
	return fuse.OK
}

// Unlink removes a directory entry.
func (f *FuseFS) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	dir, err := f.mount.ReadInode(uint32(header.NodeId))
	if err != nil {
		return fuse.ENOENT
	}
	if err := dir.Unlink(name); err != nil {
		return fuse.ToStatus(err)
	}
	return fuse.OK
}

// Rmdir removes an empty subdirectory.
func (f *FuseFS) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	dir, err := f.mount.ReadInode(uint32(header.NodeId))
	if err != nil {
		return fuse.ENOENT
	}
	child, err := dir.Lookup(name)
	if err != nil {
		return fuse.ToStatus(err)
	}
	if err := dir.Rmdir(name); err != nil {
		return fuse.ToStatus(err)
	}
	if child != nil {
		f.parentsMu.Lock()
		delete(f.parents, child.Ino)
		f.parentsMu.Unlock()
	}
	return fuse.OK
}
