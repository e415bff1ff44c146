// Package mountlist renders DEVS:MountList stanzas from directory
// entries, so a device discovered in an image can be remounted elsewhere
// with the same environment.
package mountlist

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/amigactl/go-dosdev/doslist"
)

// documented MountList defaults; a field equal to its default is omitted
// from the stanza
const (
	DefaultReserved    uint32 = 2
	DefaultInterleave  uint32 = 0
	DefaultBufMemType  uint32 = 0
	DefaultMaxTransfer uint32 = 0x7FFFFFFF
	DefaultMask        uint32 = 0xFFFFFFFE
	DefaultDosType     uint32 = doslist.IDDOSDisk
	DefaultBootPri     int32  = 0
)

// DefaultHandler is the canonical FastFileSystem path, used for the
// default DosType family and as the fallback for signatures the table
// does not know.
const DefaultHandler = "L:FastFileSystem"

// ErrNoEnvironment means the entry carries no mount environment to render.
var ErrNoEnvironment = errors.New("mountlist: device has no startup environment")

// HandlerFor infers a filesystem handler path from a DosType signature.
// Only the family byte matters within a family; unknown signatures fall
// back to the FastFileSystem.
func HandlerFor(dosType uint32) string {
	switch dosType &^ 0xFF {
	case 0x444F5300: // 'DOS\x'
		return DefaultHandler
	case 0x53465300: // 'SFS\x'
		return "L:SmartFilesystem"
	case 0x50465300, 0x50445300: // 'PFS\x', 'PDS\x'
		return "L:pfs3aio"
	case 0x43443000, 0x43444600: // 'CD0\x', 'CDF\x'
		return "L:CDFileSystem"
	}
	return DefaultHandler
}

// FormatDosType renders a signature the way mountlists write it.
func FormatDosType(t uint32) string {
	return fmt.Sprintf("0x%08X", t)
}

// Write renders the stanza for one device entry: the device name with its
// separator, geometry and driver keys, conditionally any field that
// differs from its documented default, and the closing '#' line.
func Write(w io.Writer, n *doslist.DeviceNode) error {
	s := n.Startup
	if s == nil || s.Env == nil {
		return ErrNoEnvironment
	}
	env := s.Env

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", n.Name)

	handler := n.Handler
	if handler == "" {
		handler = HandlerFor(env.DosType)
	}
	fmt.Fprintf(&b, "    FileSystem = %s\n", handler)
	fmt.Fprintf(&b, "    Device = %s\n", s.Driver)
	fmt.Fprintf(&b, "    Unit = %d\n", s.Unit)
	fmt.Fprintf(&b, "    Flags = %d\n", s.Flags)
	fmt.Fprintf(&b, "    Surfaces = %d\n", env.Surfaces)
	fmt.Fprintf(&b, "    BlocksPerTrack = %d\n", env.BlocksPerTrack)
	fmt.Fprintf(&b, "    LowCyl = %d\n", env.LowCyl)
	fmt.Fprintf(&b, "    HighCyl = %d\n", env.HighCyl)
	fmt.Fprintf(&b, "    Buffers = %d\n", env.NumBuffers)
	if env.BootPri != DefaultBootPri {
		fmt.Fprintf(&b, "    BootPri = %d\n", env.BootPri)
	}
	if env.Reserved != DefaultReserved {
		fmt.Fprintf(&b, "    Reserved = %d\n", env.Reserved)
	}
	if env.Interleave != DefaultInterleave {
		fmt.Fprintf(&b, "    Interleave = %d\n", env.Interleave)
	}
	if env.BufMemType != DefaultBufMemType {
		fmt.Fprintf(&b, "    BufMemType = %d\n", env.BufMemType)
	}
	if env.MaxTransfer != DefaultMaxTransfer {
		fmt.Fprintf(&b, "    MaxTransfer = 0x%08X\n", env.MaxTransfer)
	}
	if env.Mask != DefaultMask {
		fmt.Fprintf(&b, "    Mask = 0x%08X\n", env.Mask)
	}
	if env.DosType != DefaultDosType {
		fmt.Fprintf(&b, "    DosType = %s\n", FormatDosType(env.DosType))
	}
	b.WriteString("#\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Generate renders the stanza to a string.
func Generate(n *doslist.DeviceNode) (string, error) {
	var b strings.Builder
	if err := Write(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}
