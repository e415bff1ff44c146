// Package doslist walks the AmigaOS DOS device directory: the singly
// linked chain of device, volume and assign entries that dos.library keeps
// under RootNode->rn_Info->di_DevInfo.
//
// The chain lives in OS-owned memory that, on a live image, another task
// can relink at any moment. Every traversal therefore runs inside a scoped
// critical section supplied by an Exclusion, the analogue of bracketing
// the scan with Forbid()/Permit(). The exclusion is never held across a
// blocking classification call; see MatchPattern.
package doslist

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/amigactl/go-dosdev/bcpl"
	"github.com/amigactl/go-dosdev/memory"
)

// offsets for finding the directory head from the dos.library base
// (dos/dosextens.h)
const (
	offDOSLibRoot = 34 // DosLibrary.dl_Root, a plain APTR
	offRootInfo   = 24 // RootNode.rn_Info, BPTR to DosInfo
	offInfoDev    = 4  // DosInfo.di_DevInfo, BPTR to the first entry
)

// maxChainNodes bounds a walk of the entry chain against corrupt images.
const maxChainNodes = 4096

// ErrNoRootNode means the dos.library base does not carry a usable
// RootNode/DosInfo pair.
var ErrNoRootNode = errors.New("doslist: dos.library has no root node")

// Exclusion is the critical section every directory scan runs inside.
// Forbid must prevent the chain from being relinked until Permit; the
// matching Permit is never delayed across a blocking operation.
type Exclusion interface {
	Forbid()
	Permit()
}

// NopExclusion is for frozen images that nothing else is writing.
type NopExclusion struct{}

func (NopExclusion) Forbid() {}
func (NopExclusion) Permit() {}

// MutexExclusion serializes scans between goroutines sharing one live
// image mapping.
type MutexExclusion struct {
	mu sync.Mutex
}

func (e *MutexExclusion) Forbid() { e.mu.Lock() }
func (e *MutexExclusion) Permit() { e.mu.Unlock() }

// Directory provides snapshot queries over the device chain.
type Directory struct {
	mem  memory.Memory
	info bcpl.Addr // DosInfo
	excl Exclusion
}

// New locates the device chain through the given dos.library base. A nil
// excl gets NopExclusion, appropriate for a frozen image.
func New(m memory.Memory, dosBase bcpl.Addr, excl Exclusion) (*Directory, error) {
	if excl == nil {
		excl = NopExclusion{}
	}
	root, err := memory.Long(m, uint32(dosBase)+offDOSLibRoot)
	if err != nil {
		return nil, fmt.Errorf("doslist: reading dl_Root: %w", err)
	}
	if root == 0 {
		return nil, ErrNoRootNode
	}
	infoPtr, err := memory.Long(m, root+offRootInfo)
	if err != nil {
		return nil, fmt.Errorf("doslist: reading rn_Info: %w", err)
	}
	info := bcpl.BPTR(infoPtr).Addr()
	if info == 0 || !memory.Contains(m, uint32(info), offInfoDev+4) {
		return nil, ErrNoRootNode
	}
	return &Directory{mem: m, info: info, excl: excl}, nil
}

// Memory returns the image the directory reads from.
func (d *Directory) Memory() memory.Memory {
	return d.mem
}

func (d *Directory) head() (bcpl.BPTR, error) {
	h, err := memory.Long(d.mem, uint32(d.info)+offInfoDev)
	if err != nil {
		return 0, fmt.Errorf("doslist: reading di_DevInfo: %w", err)
	}
	return bcpl.BPTR(h), nil
}

// walk visits every entry on the chain under the exclusion. An empty
// directory produces zero visits and no error.
func (d *Directory) walk(fn func(n *DeviceNode) (stop bool, err error)) error {
	d.excl.Forbid()
	defer d.excl.Permit()

	next, err := d.head()
	if err != nil {
		return err
	}
	for i := 0; next != 0 && i < maxChainNodes; i++ {
		n, err := readNode(d.mem, next.Addr())
		if err != nil {
			return err
		}
		stop, err := fn(n)
		if err != nil || stop {
			return err
		}
		next = n.next
	}
	return nil
}

// Entries returns a snapshot of the whole chain, in chain order.
func (d *Directory) Entries() ([]*DeviceNode, error) {
	var out []*DeviceNode
	err := d.walk(func(n *DeviceNode) (bool, error) {
		out = append(out, n)
		return false, nil
	})
	return out, err
}

// StripDeviceName removes one trailing colon from a device name, so that
// "DH0:" and "DH0" address the same entry.
func StripDeviceName(name string) string {
	return strings.TrimSuffix(name, ":")
}

// equalNameFold compares device names the way dos.library does: case
// insensitively.
func equalNameFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// FindByName resolves an entry by its registered name, ignoring case and a
// trailing colon. It returns nil when nothing matches; an absent device is
// a result, not an error.
func (d *Directory) FindByName(name string) (*DeviceNode, error) {
	clean := StripDeviceName(name)
	if clean == "" {
		return nil, nil
	}
	var found *DeviceNode
	err := d.walk(func(n *DeviceNode) (bool, error) {
		if n.Name != "" && equalNameFold(n.Name, clean) {
			found = n
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// FindByDriverUnit resolves the entry mounted from the named driver at the
// given unit. The chain order is OS-defined; when two entries share a
// driver and unit, the first on the chain wins.
func (d *Directory) FindByDriverUnit(driver string, unit uint32) (*DeviceNode, error) {
	var found *DeviceNode
	err := d.walk(func(n *DeviceNode) (bool, error) {
		s := n.Startup
		if s == nil || s.Driver == "" || n.Name == "" {
			return false, nil
		}
		if equalNameFold(s.Driver, driver) && s.Unit == unit {
			found = n
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// MatchPattern visits every entry whose name starts with the literal
// prefix of pattern, which must end in a single '*'. A pattern without the
// trailing '*' matches nothing; exact-name lookups go through FindByName.
//
// The exclusion is dropped before each callback and reacquired after it,
// so a callback may classify the entry (which locks and queries on its
// own) without holding the enumeration lock. The successor link is
// captured before the exclusion is dropped; on a live image the chain may
// have been relinked by the time the walk resumes, which is the same
// window the original Forbid-bracketed scan accepts.
func (d *Directory) MatchPattern(pattern string, fn func(n *DeviceNode) error) error {
	if !strings.HasSuffix(pattern, "*") {
		return nil
	}
	prefix := StripDeviceName(pattern[:len(pattern)-1])

	d.excl.Forbid()
	locked := true
	defer func() {
		if locked {
			d.excl.Permit()
		}
	}()

	next, err := d.head()
	if err != nil {
		return err
	}
	for i := 0; next != 0 && i < maxChainNodes; i++ {
		n, err := readNode(d.mem, next.Addr())
		if err != nil {
			return err
		}
		next = n.next
		if n.Name == "" || len(n.Name) < len(prefix) ||
			!equalNameFold(n.Name[:len(prefix)], prefix) {
			continue
		}
		d.excl.Permit()
		locked = false
		if err := fn(n); err != nil {
			return err
		}
		d.excl.Forbid()
		locked = true
	}
	return nil
}

// FindVolumeByTask returns the volume entry served by the handler at the
// given message port, or nil when that handler has no volume inserted.
func (d *Directory) FindVolumeByTask(task bcpl.Addr) (*DeviceNode, error) {
	if task == 0 {
		return nil, nil
	}
	var found *DeviceNode
	err := d.walk(func(n *DeviceNode) (bool, error) {
		if n.Type == TypeVolume && n.Task == task {
			found = n
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// NameAt decodes the name of the entry a BPTR refers to, as needed when
// following an InfoData's volume-node reference. Failures decode to "".
func (d *Directory) NameAt(p bcpl.BPTR) string {
	if p == 0 {
		return ""
	}
	namePtr, err := memory.Long(d.mem, uint32(p.Addr())+offNodeName)
	if err != nil {
		return ""
	}
	name, err := bcpl.ReadName(d.mem, bcpl.BPTR(namePtr))
	if err != nil {
		return ""
	}
	return name
}
