package store

import (
	"encoding/binary"
	"encoding/json"

	"github.com/spaolacci/murmur3"

	"github.com/gyaneshwarpardhi/activityfeed/internal/activity"
)

// Fingerprint hashes the ordered content of records. Two loads of the same
// feed produce the same fingerprint; any change in order or content does not.
func Fingerprint(records []activity.Record) uint64 {
	h := murmur3.New64()
	var buf [8]byte
	for _, r := range records {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.UserID))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(r.Timestamp))
		h.Write(buf[:])
		h.Write([]byte(r.Action))
		h.Write([]byte{0})
		// encoding/json sorts map keys, so equal metadata encodes equally.
		meta, err := json.Marshal(r.Metadata)
		if err == nil {
			h.Write(meta)
		}
		h.Write([]byte{0})
	}
	return h.Sum64()
}
