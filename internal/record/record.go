// Package record defines the sensor measurement triple that flows from
// the connection manager, through the shared buffer, to the data and
// storage managers, and its on-the-wire encoding.
package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Size is the number of bytes a single encoded Record occupies on the wire:
// a 2-byte id, an 8-byte IEEE-754 value, and an 8-byte timestamp.
const Size = 2 + 8 + 8

// Record is one sensor measurement. It is value-typed and copyable, and
// must never be mutated once it has been inserted into the buffer.
type Record struct {
	ID        uint16
	Value     float64
	Timestamp int64 // seconds since epoch
}

// Decode reads one fixed-size Record from r.
//
// Wire layout: id (uint16, big endian), value (float64 bits, little
// endian), ts (int64, little endian). The id is big endian and the
// remaining fields little endian per the measurement protocol; callers
// that need a different byte order should wrap r accordingly.
func Decode(r io.Reader) (Record, error) {
	var buf [Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Record{}, err
	}

	var rec Record
	rec.ID = binary.BigEndian.Uint16(buf[0:2])
	rec.Value = math.Float64frombits(binary.LittleEndian.Uint64(buf[2:10]))
	rec.Timestamp = int64(binary.LittleEndian.Uint64(buf[10:18]))
	return rec, nil
}

// Encode writes rec to w using the same layout Decode expects. It exists
// primarily so tests and the sensor-node simulator used in integration
// tests can produce well-formed wire data without duplicating the byte
// layout.
func Encode(w io.Writer, rec Record) error {
	var buf [Size]byte
	binary.BigEndian.PutUint16(buf[0:2], rec.ID)
	binary.LittleEndian.PutUint64(buf[2:10], math.Float64bits(rec.Value))
	binary.LittleEndian.PutUint64(buf[10:18], uint64(rec.Timestamp))

	n, err := w.Write(buf[:])
	if err != nil {
		return err
	}
	if n != Size {
		return fmt.Errorf("record: short write (%d of %d bytes)", n, Size)
	}
	return nil
}

func (r Record) String() string {
	return fmt.Sprintf("record{id=%d value=%g ts=%d}", r.ID, r.Value, r.Timestamp)
}
