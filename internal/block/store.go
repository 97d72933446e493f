// Package block implements a persistent, byte-addressable page-chain
// store: fixed-size pages on a growable memory-mapped file, records as
// singly-linked page chains with back-pointers, and a two-word file header
// recording the used-block count and the tree's root record id.
package block

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Store is a persistent store of variable-length records addressed by
// block id (the block id of a record's first/primary page).
type Store struct {
	mu       sync.Mutex
	mm       *memoryMap
	used     uint64 // high-water block count; block ids are 1..used
	rootID   uint64
}

// initialBlocks is how many blocks' worth of space the backing file starts
// with before the first doubling.
const initialBlocks = 16

// Open opens or creates a block store at path.
func Open(path string) (*Store, error) {
	mm, err := newMemoryMap(path, fileHeaderSize+initialBlocks*BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}

	s := &Store{mm: mm}
	data := mm.bytes()
	s.used = binary.LittleEndian.Uint64(data[0:8])
	s.rootID = binary.LittleEndian.Uint64(data[8:16])
	return s, nil
}

// Close flushes and releases the backing mapping.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mm.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	if err := s.mm.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// Root returns the current root record id, or 0 if none has been set.
func (s *Store) Root() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootID
}

// SetRoot persists the tree's root record id in the file header.
func (s *Store) SetRoot(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootID = id
	return s.writeFileHeaderLocked()
}

func (s *Store) writeFileHeaderLocked() error {
	if err := s.ensureCapacityLocked(0); err != nil {
		return err
	}
	data := s.mm.bytes()
	binary.LittleEndian.PutUint64(data[0:8], s.used)
	binary.LittleEndian.PutUint64(data[8:16], s.rootID)
	return nil
}

// Allocate reserves one fresh page and returns its block id.
func (s *Store) Allocate() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocateLocked()
}

func (s *Store) allocateLocked() (uint64, error) {
	s.used++
	id := s.used
	if err := s.ensureCapacityLocked(id); err != nil {
		s.used--
		return 0, err
	}
	if err := s.writeFileHeaderLocked(); err != nil {
		return 0, err
	}
	return id, nil
}

// ensureCapacityLocked grows the backing file (doubling) so that block id
// (and the file header) fits.
func (s *Store) ensureCapacityLocked(id uint64) error {
	need := fileHeaderSize + int64(id)*BlockSize
	if need <= s.mm.Size() {
		return nil
	}
	newSize := s.mm.Size()
	if newSize == 0 {
		newSize = fileHeaderSize + initialBlocks*BlockSize
	}
	for newSize < need {
		newSize *= 2
	}
	if err := s.mm.Resize(newSize); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

func (s *Store) pageBytesLocked(id uint64) []byte {
	data := s.mm.bytes()
	off := pageOffset(id)
	return data[off : off+BlockSize]
}

// Store writes bytes as a record. If id == 0 a new record is allocated
// (a primary page plus as many overflow pages as needed). If id != 0 the
// record at that existing primary id is rewritten in place, reusing pages
// already in its chain and allocating or truncating as needed. Returns the
// (possibly newly allocated) primary id.
func (s *Store) Store(payload []byte, id uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := chunk(payload, pagePayloadSize)
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}

	var existing []uint64
	if id != 0 {
		var err error
		existing, err = s.chainIDsLocked(id)
		if err != nil {
			return 0, err
		}
	}

	ids := make([]uint64, len(chunks))
	for i := range chunks {
		if i < len(existing) {
			ids[i] = existing[i]
			continue
		}
		newID, err := s.allocateLocked()
		if err != nil {
			return 0, err
		}
		ids[i] = newID
	}

	// Truncate any now-unused tail pages from the previous chain by
	// zeroing them and clearing their chain pointers; their block ids
	// remain allocated (this version does not maintain a free list).
	for i := len(chunks); i < len(existing); i++ {
		buf := s.pageBytesLocked(existing[i])
		for j := range buf {
			buf[j] = 0
		}
	}

	primaryID := ids[0]
	recordLen := uint64(len(payload))
	for i, data := range chunks {
		var next, prev uint64
		if i+1 < len(ids) {
			next = ids[i+1]
		}
		if i > 0 {
			prev = ids[i-1]
		}
		h := pageHeader{
			isPrimary:    i == 0,
			indexInChain: uint64(i),
			primaryID:    primaryID,
			nextID:       next,
			prevID:       prev,
			recordLength: recordLen,
		}
		buf := s.pageBytesLocked(ids[i])
		encodePageHeader(h, buf)
		copy(buf[pageHeaderSize:], data)
	}

	return primaryID, nil
}

// chainIDsLocked walks an existing chain starting at primary id and returns
// every page id in order.
func (s *Store) chainIDsLocked(id uint64) ([]uint64, error) {
	if id == 0 || id > s.used {
		return nil, fmt.Errorf("%w: block id %d out of range", ErrInvalidArgument, id)
	}
	var ids []uint64
	cur := id
	first := true
	for cur != 0 {
		buf := s.pageBytesLocked(cur)
		h := decodePageHeader(buf)
		if first && !h.isPrimary {
			return nil, fmt.Errorf("%w: expected primary page at %d", ErrCorruptChain, cur)
		}
		first = false
		ids = append(ids, cur)
		cur = h.nextID
	}
	return ids, nil
}

// Load reconstructs a record by walking its page chain until next == 0,
// validating that the accumulated length matches the primary page's
// declared record_length.
func (s *Store) Load(id uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || id > s.used {
		return nil, fmt.Errorf("%w: block id %d out of range", ErrInvalidArgument, id)
	}

	var out []byte
	var declaredLen uint64
	cur := id
	first := true
	for cur != 0 {
		buf := s.pageBytesLocked(cur)
		h := decodePageHeader(buf)
		if first {
			if !h.isPrimary {
				return nil, fmt.Errorf("%w: expected primary page at %d", ErrCorruptChain, id)
			}
			declaredLen = h.recordLength
			first = false
		}
		remaining := int64(declaredLen) - int64(len(out))
		take := pagePayloadSize
		if remaining < int64(take) {
			if remaining < 0 {
				remaining = 0
			}
			take = int(remaining)
		}
		out = append(out, buf[pageHeaderSize:pageHeaderSize+take]...)
		cur = h.nextID
	}

	if uint64(len(out)) != declaredLen {
		return nil, fmt.Errorf("%w: declared length %d, assembled %d", ErrCorruptChain, declaredLen, len(out))
	}
	return out, nil
}

func chunk(b []byte, size int) [][]byte {
	if len(b) == 0 {
		return nil
	}
	var chunks [][]byte
	for len(b) > 0 {
		n := size
		if n > len(b) {
			n = len(b)
		}
		chunks = append(chunks, b[:n])
		b = b[n:]
	}
	return chunks
}
