// Package eeprom provides the byte-addressable persistent store the security
// engine lives on, and host-side implementations of it.
//
// On the device the store is a 1 KB EEPROM driven by a raw read/write
// primitive. The engine only assumes byte-level reliability: logical
// consistency across bytes is the job of the checksum guard.
package eeprom

import (
	"errors"
	"fmt"
)

// Size is the capacity of the chip in bytes.
const Size = 1024

// ErrOutOfRange is returned for addresses beyond the store size.
var ErrOutOfRange = errors.New("address out of range")

// Store is the raw byte primitive.
type Store interface {
	Get(addr uint16) (byte, error)
	Set(addr uint16, v byte) error
	Size() int
}

// ReadRange copies n bytes starting at addr.
func ReadRange(s Store, addr uint16, n int) ([]byte, error) {
	if int(addr)+n > s.Size() {
		return nil, fmt.Errorf("read %d bytes at 0x%03X: %w", n, addr, ErrOutOfRange)
	}
	buf := make([]byte, n)
	for i := range buf {
		v, err := s.Get(addr + uint16(i))
		if err != nil {
			return nil, fmt.Errorf("read 0x%03X: %w", int(addr)+i, err)
		}
		buf[i] = v
	}
	return buf, nil
}

// WriteRange writes p starting at addr. Bytes that already hold the target
// value are skipped to spare write cycles.
func WriteRange(s Store, addr uint16, p []byte) error {
	if int(addr)+len(p) > s.Size() {
		return fmt.Errorf("write %d bytes at 0x%03X: %w", len(p), addr, ErrOutOfRange)
	}
	for i, v := range p {
		a := addr + uint16(i)
		cur, err := s.Get(a)
		if err != nil {
			return fmt.Errorf("read 0x%03X: %w", a, err)
		}
		if cur == v {
			continue
		}
		if err := s.Set(a, v); err != nil {
			return fmt.Errorf("write 0x%03X: %w", a, err)
		}
	}
	return nil
}

// Fill sets n bytes starting at addr to v.
func Fill(s Store, addr uint16, n int, v byte) error {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = v
	}
	return WriteRange(s, addr, buf)
}
