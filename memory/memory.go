// Package memory provides read-only access to Amiga memory images.
//
// A memory image is a flat dump of the machine's address space, as produced
// by an emulator savestate or a debugger. All multi-byte values in the image
// are big-endian, per the m68k. The Memory interface is the boundary between
// the structure decoders and whatever actually holds the bytes: a file, an
// in-memory buffer, or a live mapping of an emulator's guest RAM.
package memory

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Memory is a read-only view of an Amiga address space.
type Memory interface {
	io.ReaderAt
	// Size returns the highest address in the image plus one.
	Size() int64
}

// Buffer is a Memory held entirely in a byte slice.
type Buffer struct {
	b []byte
}

// NewBuffer wraps a byte slice as Memory. The slice is not copied.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

func (m *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Buffer) Size() int64 {
	return int64(len(m.b))
}

// Bytes reads n bytes starting at addr.
func Bytes(m Memory, addr uint32, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := m.ReadAt(b, int64(addr)); err != nil {
		return nil, fmt.Errorf("memory: read %d bytes at %#x: %w", n, addr, err)
	}
	return b, nil
}

// Long reads a big-endian longword at addr.
func Long(m Memory, addr uint32) (uint32, error) {
	b, err := Bytes(m, addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Word reads a big-endian word at addr.
func Word(m Memory, addr uint32) (uint16, error) {
	b, err := Bytes(m, addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Byte reads a single byte at addr.
func Byte(m Memory, addr uint32) (byte, error) {
	b, err := Bytes(m, addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Contains reports whether the n bytes starting at addr lie inside the image.
func Contains(m Memory, addr uint32, n uint32) bool {
	return int64(addr)+int64(n) <= m.Size()
}
