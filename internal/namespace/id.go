package namespace

import (
	"crypto/rand"

	"github.com/xDarkicex/hammervdb/internal/util"
)

// newRecordID generates a fresh 128-bit record id, assigned at commit
// time and globally unique within a namespace; ids are never reused.
func newRecordID() (util.RecordID, error) {
	var id util.RecordID
	if _, err := rand.Read(id[:]); err != nil {
		return util.RecordID{}, err
	}
	return id, nil
}
