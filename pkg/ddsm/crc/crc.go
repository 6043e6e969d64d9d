// Package crc provides the checksum algorithms used by DDSM frames.
package crc

import (
	"fmt"

	"github.com/sigurn/crc16"
	"github.com/sigurn/crc8"
)

// Algorithm selects a checksum algorithm.
type Algorithm int

// Algorithms.
const (
	// None appends nothing.
	None Algorithm = iota
	// CRC8Maxim is CRC-8/MAXIM: poly 0x31 reflected (0x8C), init 0x00,
	// LSB first, no final xor.
	CRC8Maxim
	// CRC16 is poly 0x1021, init 0x0000, MSB first, no final xor.
	CRC16
)

var (
	crc8Table  = crc8.MakeTable(crc8.CRC8_MAXIM)
	crc16Table = crc16.MakeTable(crc16.CRC16_XMODEM)
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case CRC8Maxim:
		return "crc8-maxim"
	case CRC16:
		return "crc16"
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// Size is the number of bytes the checksum occupies on the wire.
func (a Algorithm) Size() int {
	switch a {
	case CRC8Maxim:
		return 1
	case CRC16:
		return 2
	}
	return 0
}

// Valid indicates the algorithm is known.
func (a Algorithm) Valid() bool {
	return a >= None && a <= CRC16
}

// Compute calculates the checksum of payload.
func Compute(a Algorithm, payload []byte) uint16 {
	switch a {
	case CRC8Maxim:
		return uint16(Sum8(payload))
	case CRC16:
		return Sum16(payload)
	}
	return 0
}

// Sum8 calculates CRC-8/MAXIM.
func Sum8(payload []byte) uint8 {
	return crc8.Checksum(payload, crc8Table)
}

// Sum16 calculates the 16-bit CRC.
func Sum16(payload []byte) uint16 {
	return crc16.Checksum(payload, crc16Table)
}

// Put writes the checksum of payload into dst, big-endian.
// dst must be at least a.Size() bytes.
func (a Algorithm) Put(dst, payload []byte) {
	switch a {
	case CRC8Maxim:
		dst[0] = Sum8(payload)
	case CRC16:
		sum := Sum16(payload)
		dst[0], dst[1] = byte(sum>>8), byte(sum)
	}
}

// Verify checks the trailing a.Size() bytes of data against the checksum of
// the leading bytes.
func (a Algorithm) Verify(data []byte) bool {
	n := a.Size()
	if len(data) < n {
		return false
	}
	if n == 0 {
		return true
	}
	var sum [2]byte
	a.Put(sum[:], data[:len(data)-n])
	for i := 0; i < n; i++ {
		if sum[i] != data[len(data)-n+i] {
			return false
		}
	}
	return true
}
