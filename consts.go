package stamfs

// On-disk constants. Values match original_source/rmdir/stamfs.h exactly.
const (
	// BlockSize is the fixed size of every on-disk block.
	BlockSize = 1024

	// Magic identifies a STAMFS disk image. Any block 1 read with a
	// different value aborts the mount.
	Magic = 0x1013F5EE

	SuperblockNum  = 1
	InodeIndexNum  = 2
	FreeListNum    = 3
	LastHardcoded  = FreeListNum // blocks <= this are reserved
	MaxNameLen     = 16
	MaxInodeNum    = BlockSize/4 + 1 // 257, numbering from 1
	BlockPtrsPerBP = BlockSize / 4   // 256, free-list and file block-index capacity

	// FreeMark is the sentinel used both as a free-block marker in
	// file/free-list slots and as a tombstone marker in directory records.
	FreeMark = 0xFFFFFFFF

	RootInodeNum = 1

	// HUB is the highest-used-block number at format time. See
	// SPEC_FULL.md's "Resolved inconsistency: HUB" for why this is 6 and
	// not 5.
	HUB = FreeListNum + 3

	RootInodeBlock      = HUB - 2 // 4
	RootInodeIndexBlock = HUB - 1 // 5
	RootDataBlock       = HUB     // 6

	inodeRecordSize = 40
	dirRecordSize   = 22
	recordsPerBlock = BlockSize / dirRecordSize // 46
)
