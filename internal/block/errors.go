package block

import "errors"

// Error taxonomy for the block store.
var (
	// ErrCorruptChain is returned by Load when a record's declared length
	// does not match its accumulated page payloads, or a non-head page is
	// reached without first seeing a primary page.
	ErrCorruptChain = errors.New("block: corrupt page chain")

	// ErrIo wraps underlying file/mmap failures.
	ErrIo = errors.New("block: io failure")

	// ErrInvalidArgument is returned for malformed calls (e.g. a zero
	// record id passed to Load).
	ErrInvalidArgument = errors.New("block: invalid argument")
)
