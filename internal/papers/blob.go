package papers

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// blobRecordLen is the size of one (id, count) record: LE32 id + LE16 count.
const blobRecordLen = 6

// ErrBlobLength is returned for a reference blob whose size is not a whole
// number of records.
var ErrBlobLength = errors.New("pcite blob length is not a multiple of 6")

// BlobEntry is one record of a reference/citation blob: the other paper and
// how many times it is cited.
type BlobEntry struct {
	ID    uint32
	Count uint16
}

// EncodeBlob packs entries into the fixed little-endian blob layout stored in
// the pcite table.
func EncodeBlob(entries []BlobEntry) []byte {
	b := make([]byte, 0, len(entries)*blobRecordLen)
	for _, e := range entries {
		b = binary.LittleEndian.AppendUint32(b, e.ID)
		b = binary.LittleEndian.AppendUint16(b, e.Count)
	}
	return b
}

// DecodeBlob unpacks a reference/citation blob.
func DecodeBlob(b []byte) ([]BlobEntry, error) {
	if len(b)%blobRecordLen != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBlobLength, len(b))
	}
	entries := make([]BlobEntry, 0, len(b)/blobRecordLen)
	for i := 0; i < len(b); i += blobRecordLen {
		entries = append(entries, BlobEntry{
			ID:    binary.LittleEndian.Uint32(b[i:]),
			Count: binary.LittleEndian.Uint16(b[i+4:]),
		})
	}
	return entries, nil
}
