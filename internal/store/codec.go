package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/andybalholm/brotli"
)

// Snapshots are brotli-compressed: a 4 byte magic, an LE32 record count, then
// per record an LE32 id followed by x, y, z as LE64 IEEE-754 bits.
var snapshotMagic = [4]byte{'P', 'M', 'S', '1'}

const snapshotRecordLen = 4 + 3*8

// ErrBadSnapshot is returned for a blob that is not a position snapshot.
var ErrBadSnapshot = errors.New("store: malformed position snapshot")

// EncodeSnapshot serialises recs into a compressed blob.
func EncodeSnapshot(recs []Record) ([]byte, error) {
	raw := make([]byte, 0, 8+len(recs)*snapshotRecordLen)
	raw = append(raw, snapshotMagic[:]...)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(recs)))
	for _, r := range recs {
		raw = binary.LittleEndian.AppendUint32(raw, r.ID)
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(r.X))
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(r.Y))
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(r.Z))
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(blob []byte) ([]Record, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if len(raw) < 8 || !bytes.Equal(raw[:4], snapshotMagic[:]) {
		return nil, ErrBadSnapshot
	}
	n := int(binary.LittleEndian.Uint32(raw[4:]))
	body := raw[8:]
	if len(body) != n*snapshotRecordLen {
		return nil, fmt.Errorf("%w: %d records in %d bytes", ErrBadSnapshot, n, len(body))
	}

	recs := make([]Record, n)
	for i := range recs {
		b := body[i*snapshotRecordLen:]
		recs[i] = Record{
			ID: binary.LittleEndian.Uint32(b),
			X:  math.Float64frombits(binary.LittleEndian.Uint64(b[4:])),
			Y:  math.Float64frombits(binary.LittleEndian.Uint64(b[12:])),
			Z:  math.Float64frombits(binary.LittleEndian.Uint64(b[20:])),
		}
	}
	return recs, nil
}
