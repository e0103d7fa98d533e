package stamfs

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Format implements spec.md §4.6's seven-step formatter, writing a fresh
// empty filesystem of totalBlocks blocks directly through dev (no buffer
// cache needed — every block is written exactly once, in order, the same
// way original_source/utils/mkstamfs.c does it).
func Format(dev BlockDevice, totalBlocks uint32) error {
	if totalBlocks < HUB+1 {
		return ioErrorf("device too small: %d blocks, need at least %d", totalBlocks, HUB+1)
	}

	writeBlock := func(num uint32, data []byte) error {
		if len(data) > BlockSize {
			fatalf("stamfs: format: block %d payload exceeds block size", num)
		}
		buf := make([]byte, BlockSize)
		copy(buf, data)
		if _, err := dev.WriteAt(buf, int64(num)*BlockSize); err != nil {
			return ioErrorf("format: write block %d: %v", num, err)
		}
		return nil
	}

	sb := &Superblock{
		Magic:               Magic,
		InodesCount:         MaxInodeNum,
		BlocksCount:         totalBlocks,
		FreeInodesCount:     MaxInodeNum - 1,
		FreeBlocksCount:     totalBlocks - (HUB + 1),
		FreeListBlockNum:    FreeListNum,
		HighestUsedBlockNum: HUB,
	}
	sbData := make([]byte, superblockRecordSize)
	sb.marshal(sbData)
	if err := writeBlock(SuperblockNum, sbData); err != nil {
		return err
	}
	logrus.Debug("stamfs: format: wrote superblock")

	idx := make([]byte, BlockSize)
	setU32(idx, RootInodeNum-1, RootInodeBlock)
	if err := writeBlock(InodeIndexNum, idx); err != nil {
		return err
	}
	logrus.Debug("stamfs: format: wrote inode index")

	if err := writeBlock(FreeListNum, make([]byte, BlockSize)); err != nil {
		return err
	}
	logrus.Debug("stamfs: format: wrote free list")

	root := &Inode{
		Mode:       S_IFDIR | 0755,
		NLink:      1,
		Size:       BlockSize,
		Blocks:     1,
		indexBlock: RootInodeIndexBlock,
	}
	rootData := make([]byte, inodeRecordSize)
	root.marshal(rootData)
	if err := writeBlock(RootInodeBlock, rootData); err != nil {
		return err
	}
	logrus.Debug("stamfs: format: wrote root inode")

	rootIdx := make([]byte, BlockSize)
	setU32(rootIdx, 0, RootDataBlock)
	if err := writeBlock(RootInodeIndexBlock, rootIdx); err != nil {
		return err
	}
	logrus.Debug("stamfs: format: wrote root inode index")

	if err := writeBlock(RootDataBlock, make([]byte, BlockSize)); err != nil {
		return err
	}
	logrus.Debug("stamfs: format: wrote root data block")

	return nil
}

// FormatFile opens path and formats it in place. A block device is always
// accepted, a regular file only when force is set; any other target is
// refused.
func FormatFile(path string, force bool) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	isBlock, err := isBlockDevice(f)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	isRegular := fi.Mode().IsRegular()

	if !isBlock && !(force && isRegular) {
		return ioErrorf("%s is not a block device (use -f to format a regular file)", path)
	}

	size, err := deviceSize(f)
	if err != nil {
		return err
	}
	totalBlocks := uint32(size / BlockSize)

	return Format(f, totalBlocks)
}
