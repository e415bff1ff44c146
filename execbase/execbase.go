// Package execbase locates exec.library state in an Amiga memory image:
// the ExecBase anchor at AbsExecBase, and the system lists of loaded
// devices and libraries hanging off it.
package execbase

import (
	"errors"
	"fmt"

	"github.com/amigactl/go-dosdev/bcpl"
	"github.com/amigactl/go-dosdev/memory"
)

// AbsExecBase is the one fixed address on the machine: the longword at 4
// points at ExecBase.
const AbsExecBase = 4

// offsets into ExecBase (exec/execbase.h)
const (
	offLibVersion = 20  // Library.lib_Version, the Kickstart release
	offChkBase    = 38  // complement of the base address
	offDeviceList = 350 // struct List of loaded device drivers
	offLibList    = 378 // struct List of opened libraries
	execBaseSize  = 632
)

// offsets into struct Node / struct List (exec/nodes.h, exec/lists.h)
const (
	offNodeSucc = 0
	offNodeType = 8
	offNodeName = 10
)

// maxListNodes bounds every list walk so a corrupt image cannot send us
// around a pointer loop forever.
const maxListNodes = 4096

// DOSLibName is the registered name of dos.library on the library list.
const DOSLibName = "dos.library"

var (
	// ErrNotAmigaImage means the image has no valid ExecBase anchor.
	ErrNotAmigaImage = errors.New("execbase: image does not contain a valid ExecBase")
	// ErrNoDOSLibrary means dos.library is not on the library list.
	ErrNoDOSLibrary = errors.New("execbase: dos.library is not loaded in this image")
)

// ExecBase is a decoded reference to the exec library base in an image.
type ExecBase struct {
	mem  memory.Memory
	base bcpl.Addr
}

// Find locates ExecBase through AbsExecBase and validates it against its
// ChkBase complement field, which catches both truncated dumps and files
// that are not Amiga memory at all.
func Find(m memory.Memory) (*ExecBase, error) {
	base, err := memory.Long(m, AbsExecBase)
	if err != nil {
		return nil, fmt.Errorf("execbase: reading AbsExecBase: %w", err)
	}
	if base == 0 || base%2 != 0 || !memory.Contains(m, base, execBaseSize) {
		return nil, ErrNotAmigaImage
	}
	chk, err := memory.Long(m, base+offChkBase)
	if err != nil {
		return nil, fmt.Errorf("execbase: reading ChkBase: %w", err)
	}
	if chk != ^base {
		return nil, ErrNotAmigaImage
	}
	return &ExecBase{mem: m, base: bcpl.Addr(base)}, nil
}

// Base returns the address ExecBase was found at.
func (e *ExecBase) Base() bcpl.Addr {
	return e.base
}

// Version returns exec.library's major version, which identifies the
// Kickstart release the image was running (34 = 1.3, 37 = 2.04, 40 = 3.1).
func (e *ExecBase) Version() (uint16, error) {
	return memory.Word(e.mem, uint32(e.base)+offLibVersion)
}

// walkList visits every node on one of the exec system lists. The head
// node's successor pointer is null only for the tail sentinel, which is
// how the walk terminates.
func (e *ExecBase) walkList(listOff uint32, fn func(node bcpl.Addr, name string) (stop bool, err error)) error {
	node, err := memory.Long(e.mem, uint32(e.base)+listOff)
	if err != nil {
		return fmt.Errorf("execbase: reading list head: %w", err)
	}
	for i := 0; node != 0 && i < maxListNodes; i++ {
		succ, err := memory.Long(e.mem, node+offNodeSucc)
		if err != nil {
			return fmt.Errorf("execbase: reading node at %#x: %w", node, err)
		}
		if succ == 0 {
			// tail sentinel
			return nil
		}
		namePtr, err := memory.Long(e.mem, node+offNodeName)
		if err != nil {
			return fmt.Errorf("execbase: reading node name at %#x: %w", node, err)
		}
		name, err := bcpl.ReadCString(e.mem, bcpl.Addr(namePtr), 256)
		if err != nil {
			return err
		}
		stop, err := fn(bcpl.Addr(node), name)
		if err != nil || stop {
			return err
		}
		node = succ
	}
	return nil
}

// Devices returns the names of every driver on the exec device list.
func (e *ExecBase) Devices() ([]string, error) {
	var names []string
	err := e.walkList(offDeviceList, func(_ bcpl.Addr, name string) (bool, error) {
		if name != "" {
			names = append(names, name)
		}
		return false, nil
	})
	return names, err
}

// HasDevice reports whether a driver with the given name is on the exec
// device list. The comparison is exact, matching exec's FindName. A driver
// that would be demand-loaded from DEVS: at OpenDevice time is invisible
// to a snapshot; that is a limitation of probing an image rather than the
// live machine.
func (e *ExecBase) HasDevice(name string) (bool, error) {
	found := false
	err := e.walkList(offDeviceList, func(_ bcpl.Addr, n string) (bool, error) {
		if n == name {
			found = true
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// FindLibrary returns the base address of the named library, or zero when
// it is not on the library list.
func (e *ExecBase) FindLibrary(name string) (bcpl.Addr, error) {
	var base bcpl.Addr
	err := e.walkList(offLibList, func(node bcpl.Addr, n string) (bool, error) {
		if n == name {
			base = node
			return true, nil
		}
		return false, nil
	})
	return base, err
}

// DOSBase returns the dos.library base.
func (e *ExecBase) DOSBase() (bcpl.Addr, error) {
	base, err := e.FindLibrary(DOSLibName)
	if err != nil {
		return 0, err
	}
	if base == 0 {
		return 0, ErrNoDOSLibrary
	}
	return base, nil
}
