// Package bcpl decodes the BCPL-flavored references AmigaOS dos.library
// inherited from Tripos: BPTRs, which address longwords rather than bytes,
// and BSTRs, strings stored as a length byte followed by that many raw
// bytes with no terminator.
//
// Every cross-boundary reference found in a DOS structure must be decoded
// here before it is dereferenced; nothing else in the module shifts
// pointers inline.
package bcpl

import (
	"fmt"

	"github.com/amigactl/go-dosdev/memory"
)

// Addr is a machine (byte) address in the image.
type Addr uint32

// BPTR is a longword-addressed pointer. A zero BPTR is a null reference.
type BPTR uint32

// Addr converts a BPTR to the machine address it refers to, the BADDR()
// macro of dos/dos.h.
func (p BPTR) Addr() Addr {
	return Addr(p << 2)
}

// ToBPTR converts a longword-aligned machine address to a BPTR, the
// MKBADDR() macro.
func ToBPTR(a Addr) BPTR {
	return BPTR(a >> 2)
}

func (a Addr) String() string {
	return fmt.Sprintf("%#x", uint32(a))
}

// NameCapacity is the conventional destination size for DOS object names,
// large enough for the longest name a handler will register plus the
// terminator a C caller would append.
const NameCapacity = 108

// ReadBString decodes the BSTR referenced by p into a plain string.
//
// It fails safe rather than overrunning: a null BPTR, a zero length byte,
// or a declared length that would not fit in a destination of capacity
// bytes (content plus one) all yield the empty string. An error is
// returned only when the backing Memory itself fails.
func ReadBString(m memory.Memory, p BPTR, capacity int) (string, error) {
	if p == 0 || capacity < 2 {
		return "", nil
	}
	addr := uint32(p.Addr())
	length, err := memory.Byte(m, addr)
	if err != nil {
		return "", fmt.Errorf("bcpl: bstr length at %#x: %w", addr, err)
	}
	if length == 0 || int(length)+1 > capacity {
		return "", nil
	}
	b, err := memory.Bytes(m, addr+1, int(length))
	if err != nil {
		return "", fmt.Errorf("bcpl: bstr content at %#x: %w", addr, err)
	}
	return string(b), nil
}

// ReadName decodes a BSTR with the standard DOS name capacity.
func ReadName(m memory.Memory, p BPTR) (string, error) {
	return ReadBString(m, p, NameCapacity)
}

// ReadCString reads a NUL-terminated string at a, as found in exec list
// node names. Reads at most max bytes; an unterminated string is returned
// as far as it goes.
func ReadCString(m memory.Memory, a Addr, max int) (string, error) {
	if a == 0 || max <= 0 {
		return "", nil
	}
	if remain := m.Size() - int64(a); remain < int64(max) {
		if remain <= 0 {
			return "", nil
		}
		max = int(remain)
	}
	b := make([]byte, max)
	n, err := m.ReadAt(b, int64(a))
	if n == 0 && err != nil {
		return "", fmt.Errorf("bcpl: cstr at %#x: %w", uint32(a), err)
	}
	b = b[:n]
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}
