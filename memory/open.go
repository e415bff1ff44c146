package memory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// compressed image signatures
var (
	magicXZ  = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicLZ4 = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Open opens a memory image file. xz- and lz4-compressed images are
// recognized by their magic bytes and decompressed into a Buffer; anything
// else is served straight from the file. The returned Memory implements
// io.Closer when it holds an open file.
func Open(path string) (Memory, error) {
	if path == "" {
		return nil, errors.New("memory: must pass image path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory: could not open image %s: %w", path, err)
	}

	magic := make([]byte, 6)
	n, err := f.Read(magic)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("memory: could not read image %s: %w", path, err)
	}
	magic = magic[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	switch {
	case bytes.HasPrefix(magic, magicXZ):
		defer f.Close()
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("memory: bad xz image %s: %w", path, err)
		}
		return slurp(r, path)
	case bytes.HasPrefix(magic, magicLZ4):
		defer f.Close()
		return slurp(lz4.NewReader(f), path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileMemory{f: f, size: info.Size()}, nil
}

func slurp(r io.Reader, path string) (Memory, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("memory: could not decompress image %s: %w", path, err)
	}
	return NewBuffer(b), nil
}

// fileMemory serves an uncompressed image directly from the file.
type fileMemory struct {
	f    *os.File
	size int64
}

func (m *fileMemory) ReadAt(p []byte, off int64) (int, error) {
	return m.f.ReadAt(p, off)
}

func (m *fileMemory) Size() int64 {
	return m.size
}

func (m *fileMemory) Close() error {
	return m.f.Close()
}
