package memory

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps an uncompressed image file into the address space, for images
// that another process (typically an emulator) may still be writing.
// Readers sharing a mapped image must serialize their scans; see the
// Exclusion interface in the doslist package.
func Map(path string) (Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory: could not open image %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() <= 0 {
		return nil, fmt.Errorf("memory: image %s is empty", path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("memory: could not map image %s: %w", path, err)
	}
	return &mappedMemory{data: data}, nil
}

type mappedMemory struct {
	data []byte
}

func (m *mappedMemory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mappedMemory) Size() int64 {
	return int64(len(m.data))
}

func (m *mappedMemory) Close() error {
	return unix.Munmap(m.data)
}
