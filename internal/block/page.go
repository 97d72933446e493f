package block

import "encoding/binary"

// BlockSize is the fixed page size.
const BlockSize = 4096

// fileHeaderSize is the two u64 words at the front of the file: used block
// count and the root record id.
const fileHeaderSize = 16

// pageHeaderSize is the fixed-size page header preceding payload bytes:
// is_primary(1) + index_in_chain(8) + primary_id(8) + next_id(8) +
// prev_id(8) + record_length(8).
const pageHeaderSize = 1 + 8 + 8 + 8 + 8 + 8

// pagePayloadSize is how many payload bytes fit per page.
const pagePayloadSize = BlockSize - pageHeaderSize

type pageHeader struct {
	isPrimary     bool
	indexInChain  uint64
	primaryID     uint64
	nextID        uint64
	prevID        uint64
	recordLength  uint64 // authoritative on the primary page only
}

func encodePageHeader(h pageHeader, buf []byte) {
	if h.isPrimary {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	binary.LittleEndian.PutUint64(buf[1:9], h.indexInChain)
	binary.LittleEndian.PutUint64(buf[9:17], h.primaryID)
	binary.LittleEndian.PutUint64(buf[17:25], h.nextID)
	binary.LittleEndian.PutUint64(buf[25:33], h.prevID)
	binary.LittleEndian.PutUint64(buf[33:41], h.recordLength)
}

func decodePageHeader(buf []byte) pageHeader {
	return pageHeader{
		isPrimary:    buf[0] == 1,
		indexInChain: binary.LittleEndian.Uint64(buf[1:9]),
		primaryID:    binary.LittleEndian.Uint64(buf[9:17]),
		nextID:       binary.LittleEndian.Uint64(buf[17:25]),
		prevID:       binary.LittleEndian.Uint64(buf[25:33]),
		recordLength: binary.LittleEndian.Uint64(buf[33:41]),
	}
}

// pageOffset returns the byte offset of block id (1-based) within the file.
func pageOffset(id uint64) int64 {
	return fileHeaderSize + int64(id-1)*BlockSize
}
