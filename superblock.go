package stamfs

import "encoding/binary"

// Superblock is the 28-byte record held at block 1. Encoded manually,
// field by field, rather than via reflection — see DESIGN.md's superblock.go
// entry for why.
type Superblock struct {
	Magic               uint32
	InodesCount         uint32
	BlocksCount         uint32
	FreeInodesCount     uint32
	FreeBlocksCount     uint32
	FreeListBlockNum    uint32
	HighestUsedBlockNum uint32
}

const superblockRecordSize = 7 * 4

func (sb *Superblock) marshal(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], sb.InodesCount)
	binary.LittleEndian.PutUint32(buf[8:12], sb.BlocksCount)
	binary.LittleEndian.PutUint32(buf[12:16], sb.FreeInodesCount)
	binary.LittleEndian.PutUint32(buf[16:20], sb.FreeBlocksCount)
	binary.LittleEndian.PutUint32(buf[20:24], sb.FreeListBlockNum)
	binary.LittleEndian.PutUint32(buf[24:28], sb.HighestUsedBlockNum)
}

func unmarshalSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < superblockRecordSize {
		return nil, ioErrorf("superblock record truncated")
	}
	sb := &Superblock{
		Magic:               binary.LittleEndian.Uint32(buf[0:4]),
		InodesCount:         binary.LittleEndian.Uint32(buf[4:8]),
		BlocksCount:         binary.LittleEndian.Uint32(buf[8:12]),
		FreeInodesCount:     binary.LittleEndian.Uint32(buf[12:16]),
		FreeBlocksCount:     binary.LittleEndian.Uint32(buf[16:20]),
		FreeListBlockNum:    binary.LittleEndian.Uint32(buf[20:24]),
		HighestUsedBlockNum: binary.LittleEndian.Uint32(buf[24:28]),
	}
	if sb.Magic != Magic {
		return nil, ErrCorrupt
	}
	return sb, nil
}
