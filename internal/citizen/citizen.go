// Package citizen defines the record payload stored under each DNI key
// and its on-disk wire format.
package citizen

import (
	"encoding/binary"
	"fmt"
)

// Citizen is one record: a DNI and the three name/address fields stored
// alongside it.
type Citizen struct {
	DNI       uint32
	Nombres   string
	Apellidos string
	Direccion string
}

// SerializedSize returns the exact number of bytes Serialize will write.
func (c Citizen) SerializedSize() int {
	return 4 +
		2 + len(c.Nombres) +
		2 + len(c.Apellidos) +
		2 + len(c.Direccion)
}

// Serialize writes c's wire format into buf, which must be at least
// SerializedSize() bytes long. Layout:
//
//	dni(u32) | len(u16) nombres | len(u16) apellidos | len(u16) direccion
func (c Citizen) Serialize(buf []byte) int {
	off := 0

	binary.LittleEndian.PutUint32(buf[off:off+4], c.DNI)
	off += 4

	off += putField(buf[off:], c.Nombres)
	off += putField(buf[off:], c.Apellidos)
	off += putField(buf[off:], c.Direccion)

	return off
}

func putField(buf []byte, s string) int {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(s)))
	copy(buf[2:2+len(s)], s)
	return 2 + len(s)
}

// Deserialize parses a Citizen out of buf, as written by Serialize.
func Deserialize(buf []byte) (Citizen, error) {
	if len(buf) < 4 {
		return Citizen{}, fmt.Errorf("citizen: buffer too short for dni: %d bytes", len(buf))
	}

	var c Citizen
	off := 0

	c.DNI = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4

	var err error
	c.Nombres, off, err = getField(buf, off)
	if err != nil {
		return Citizen{}, fmt.Errorf("citizen: nombres: %w", err)
	}
	c.Apellidos, off, err = getField(buf, off)
	if err != nil {
		return Citizen{}, fmt.Errorf("citizen: apellidos: %w", err)
	}
	c.Direccion, _, err = getField(buf, off)
	if err != nil {
		return Citizen{}, fmt.Errorf("citizen: direccion: %w", err)
	}

	return c, nil
}

func getField(buf []byte, off int) (string, int, error) {
	if off+2 > len(buf) {
		return "", 0, fmt.Errorf("truncated length prefix at offset %d", off)
	}
	length := int(binary.LittleEndian.Uint16(buf[off : off+2]))
	off += 2
	if off+length > len(buf) {
		return "", 0, fmt.Errorf("truncated field at offset %d (want %d bytes)", off, length)
	}
	s := string(buf[off : off+length])
	off += length
	return s, off, nil
}
