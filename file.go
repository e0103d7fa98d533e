package stamfs

import "io"

// MapOffset implements spec.md §4.4's map_offset: return the index block's
// entry at block_offset if mapped, else ok=false.
func (i *Inode) MapOffset(blockOffset uint32) (blockNum uint32, ok bool, err error) {
	buf, err := i.mount.cache.Read(i.indexBlock)
	if err != nil {
		return 0, false, err
	}
	defer buf.Release()

	if int(blockOffset) >= BlockPtrsPerBP {
		return 0, false, nil
	}
	v := getU32(buf.Bytes(), int(blockOffset))
	if v == 0 || v == FreeMark {
		return 0, false, nil
	}
	return v, true, nil
}

// SetOffset implements spec.md §4.4's set_offset: write block_num into the
// index block at block_offset, increment i_blocks, mark both dirty.
func (i *Inode) SetOffset(blockOffset uint32, blockNum uint32) error {
	buf, err := i.mount.cache.Read(i.indexBlock)
	if err != nil {
		return err
	}
	setU32(buf.GetMut(), int(blockOffset), blockNum)
	if err := buf.Release(); err != nil {
		return err
	}

	i.Blocks++
	return i.WriteInode(false)
}

// GetBlock implements spec.md §4.4's get_block, the page-cache adaptor: if
// the offset is already mapped, return it; else, if create is set,
// allocate and map a fresh block (the "new" flag tells the caller it need
// not read from disk). When !create and the offset is unmapped it reports
// "no block" as blockNum 0 with a nil error.
func (i *Inode) GetBlock(blockOffset uint32, create bool) (blockNum uint32, isNew bool, err error) {
	if b, ok, err := i.MapOffset(blockOffset); err != nil {
		return 0, false, err
	} else if ok {
		return b, false, nil
	}

	if !create {
		return 0, false, nil
	}
	if int(blockOffset) >= BlockPtrsPerBP {
		return 0, false, ErrNoSpace
	}

	b, err := i.mount.AllocBlock()
	if err != nil {
		return 0, false, err
	}
	if b == 0 {
		return 0, false, ErrNoSpace
	}

	if err := i.SetOffset(blockOffset, b); err != nil {
		i.mount.ReleaseBlock(b)
		return 0, false, err
	}
	return b, true, nil
}

// ReadAt implements io.ReaderAt over the file's mapped blocks, zero-filling
// unmapped offsets and masking stale tail bytes past i_size — the
// page-cache role spec.md §4.4 leaves to "generic page-cache primitives
// provided by the VFS adapter".
func (i *Inode) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrInvalidSeek
	}
	if off >= int64(i.Size) {
		return 0, io.EOF
	}

	end := off + int64(len(p))
	if end > int64(i.Size) {
		end = int64(i.Size)
	}

	n := 0
	for off < end {
		block := uint32(off / BlockSize)
		within := int(off % BlockSize)
		chunk := BlockSize - within
		if remain := int(end - off); chunk > remain {
			chunk = remain
		}

		blockNum, ok, err := i.MapOffset(block)
		if err != nil {
			return n, err
		}
		if !ok {
			for j := 0; j < chunk; j++ {
				p[n+j] = 0
			}
		} else {
			buf, err := i.mount.cache.Read(blockNum)
			if err != nil {
				return n, err
			}
			copy(p[n:n+chunk], buf.Bytes()[within:within+chunk])
			buf.Release()
		}

		n += chunk
		off += int64(chunk)
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt over the file's mapped blocks, allocating
// new blocks on demand via GetBlock and growing i_size as needed.
func (i *Inode) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrInvalidSeek
	}

	n := 0
	for n < len(p) {
		cur := off + int64(n)
		block := uint32(cur / BlockSize)
		within := int(cur % BlockSize)
		chunk := BlockSize - within
		if remain := len(p) - n; chunk > remain {
			chunk = remain
		}

		blockNum, _, err := i.GetBlock(block, true)
		if err != nil {
			return n, err
		}

		buf, err := i.mount.cache.Read(blockNum)
		if err != nil {
			return n, err
		}
		copy(buf.GetMut()[within:within+chunk], p[n:n+chunk])
		if err := buf.Release(); err != nil {
			return n, err
		}

		n += chunk
	}

	if newSize := uint32(off + int64(n)); newSize > i.Size {
		i.Size = newSize
	}
	t := now32()
	i.Mtime, i.Ctime = t, t
	if err := i.WriteInode(false); err != nil {
		return n, err
	}
	return n, nil
}
