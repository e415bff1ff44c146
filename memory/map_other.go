//go:build !linux

package memory

import "errors"

// Map maps a live image file. Only supported on linux; other platforms can
// still Open the same file for a point-in-time view.
func Map(path string) (Memory, error) {
	return nil, errors.New("memory: live image mapping not supported on this platform")
}
