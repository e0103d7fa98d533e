package stamfs

import "strings"

// SyncFile implements the adapter op spec.md §6 names: flush the inode's
// data buffers (here, its index block, the only metadata buffer data
// writes touch) then, unless datasync suppresses it, write the inode
// record itself synchronously.
func (i *Inode) SyncFile(datasync bool) error {
	idxBuf, err := i.mount.cache.Read(i.indexBlock)
	if err != nil {
		return err
	}
	if err := idxBuf.Sync(); err != nil {
		idxBuf.Release()
		return err
	}
	if err := idxBuf.Release(); err != nil {
		return err
	}

	if datasync {
		return nil
	}
	return i.WriteInode(true)
}

// Resolve walks a "/a/b/c"-style path from the root, one Lookup per
// component, mirroring the teacher's Inode.LookupRelativeInodePath adapted
// from a read-only compressed-table walk to STAMFS's read-write single
// -block directories.
func (m *Mount) Resolve(path string) (*Inode, error) {
	root, err := m.ReadInode(RootInodeNum)
	if err != nil {
		return nil, err
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return root, nil
	}

	cur := root
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		next, err := cur.Lookup(part)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, ErrNotExist
		}
		cur = next
	}
	return cur, nil
}

// ParentInode resolves the parent of a "/a/b/c"-style path, returning it
// alongside the final path component's name.
func (m *Mount) ParentInode(path string) (*Inode, string, error) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		root, err := m.ReadInode(RootInodeNum)
		return root, path, err
	}
	parent, err := m.Resolve(path[:idx])
	return parent, path[idx+1:], err
}
