// Package testhelper builds synthetic Amiga memory images for tests:
// an ExecBase with device and library lists, a dos.library with its root
// node, and a DOS device chain populated to order. It exists so package
// tests can exercise the decoders against known structures without
// shipping real emulator dumps.
package testhelper

import (
	"encoding/binary"
	"io"

	"github.com/amigactl/go-dosdev/bcpl"
	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/memory"
)

// exec node types
const (
	ntDevice  = 3
	ntLibrary = 9
)

// ImageBuilder assembles a big-endian memory image. All structures are
// laid out with the same offsets the decoders read them back from.
type ImageBuilder struct {
	buf      []byte
	cursor   uint32
	execBase uint32
	dosInfo  uint32
	lastNode uint32 // tail of the DOS device chain
}

// Device describes one DOS device entry to add to the chain.
type Device struct {
	Name   string
	Driver string
	Unit   uint32
	Flags  uint32
	// Env defaults to DefaultEnviron() when nil and a Driver is set.
	Env *doslist.Environ
	// Handler sets dn_Handler to the given BSTR path.
	Handler string
	// NoTask leaves the entry without a handler process.
	NoTask bool
	// NoStartup leaves dn_Startup null even when Driver is set.
	NoStartup bool
	// Type overrides the entry type (TypeDevice when zero-valued).
	Type doslist.NodeType
}

// Volume describes one volume entry.
type Volume struct {
	Name     string
	Task     bcpl.Addr
	DiskType uint32
	Date     doslist.DateStamp
}

// NewImageBuilder lays out an image containing a valid ExecBase, an empty
// exec device list, and a dos.library whose device chain is empty.
func NewImageBuilder() *ImageBuilder {
	b := &ImageBuilder{
		buf:    make([]byte, 64*1024),
		cursor: 0x100,
	}

	b.execBase = b.alloc(632)
	b.put32(4, b.execBase)              // AbsExecBase
	b.put16(b.execBase+20, 40)          // lib_Version, Kickstart 3.1
	b.put32(b.execBase+38, ^b.execBase) // ChkBase
	b.initList(b.execBase + 350)      // DeviceList
	b.initList(b.execBase + 378)      // LibList

	dosLib := b.alloc(40)
	b.buf[dosLib+8] = ntLibrary
	b.put32(dosLib+10, b.cstr("dos.library"))
	b.addTail(b.execBase+378, dosLib)

	rootNode := b.alloc(32)
	b.dosInfo = b.alloc(24)
	b.put32(dosLib+34, rootNode)                // dl_Root
	b.put32(rootNode+24, b.dosInfo>>2)          // rn_Info
	b.put32(b.dosInfo+4, 0)                     // di_DevInfo, empty chain
	return b
}

// AddExecDevice puts a driver on the exec device list, making it visible
// to availability probes.
func (b *ImageBuilder) AddExecDevice(name string) {
	node := b.alloc(14)
	b.buf[node+8] = ntDevice
	b.put32(node+10, b.cstr(name))
	b.addTail(b.execBase+350, node)
}

// AddDevice appends a device entry to the DOS chain and returns the
// address of its handler port (zero when NoTask).
func (b *ImageBuilder) AddDevice(d Device) bcpl.Addr {
	node := b.alloc(44)
	b.put32(node+4, uint32(d.Type))
	var task uint32
	if !d.NoTask {
		task = b.alloc(34) // a MsgPort-sized blob; only its address matters
		b.put32(node+8, task)
	}
	if d.Handler != "" {
		b.put32(node+16, uint32(b.bstr(d.Handler)))
	}
	b.put32(node+40, uint32(b.bstr(d.Name)))

	if d.Driver != "" && !d.NoStartup {
		env := d.Env
		if env == nil {
			env = DefaultEnviron()
		}
		envAddr := b.writeEnviron(env)
		fssm := b.alloc(16)
		b.put32(fssm+0, d.Unit)
		b.put32(fssm+4, uint32(b.bstr(d.Driver)))
		b.put32(fssm+8, envAddr>>2)
		b.put32(fssm+12, d.Flags)
		b.put32(node+28, fssm>>2)
	}

	b.link(node)
	return bcpl.Addr(task)
}

// AddVolume appends a volume entry served by the given handler port.
func (b *ImageBuilder) AddVolume(v Volume) bcpl.Addr {
	node := b.alloc(44)
	b.put32(node+4, uint32(doslist.TypeVolume))
	b.put32(node+8, uint32(v.Task))
	b.put32(node+16, uint32(v.Date.Days))
	b.put32(node+20, uint32(v.Date.Minutes))
	b.put32(node+24, uint32(v.Date.Ticks))
	b.put32(node+32, v.DiskType)
	b.put32(node+40, uint32(b.bstr(v.Name)))
	b.link(node)
	return bcpl.Addr(node)
}

// Memory returns the image as read-only Memory. The view reads through to
// the builder's current buffer, so it stays valid across later Add calls
// even when they grow the image, and it observes corruption applied
// through Bytes.
func (b *ImageBuilder) Memory() memory.Memory {
	return builderMemory{b}
}

type builderMemory struct {
	b *ImageBuilder
}

func (m builderMemory) ReadAt(p []byte, off int64) (int, error) {
	buf := m.b.buf
	if off < 0 || off >= int64(len(buf)) {
		return 0, io.EOF
	}
	n := copy(p, buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m builderMemory) Size() int64 {
	return int64(len(m.b.buf))
}

// Bytes exposes the raw image, for tests that write fixture files or poke
// at encodings directly. The slice is only current until a later Add grows
// the image; take it after building.
func (b *ImageBuilder) Bytes() []byte {
	return b.buf
}

// DefaultEnviron is a floppy-like mount environment with every
// conditionally-emitted mountlist field at its documented default.
func DefaultEnviron() *doslist.Environ {
	return &doslist.Environ{
		TableSize:      16,
		SizeBlock:      128,
		Surfaces:       2,
		BlocksPerTrack: 11,
		Reserved:       2,
		LowCyl:         2,
		HighCyl:        79,
		NumBuffers:     30,
		MaxTransfer:    0x7FFFFFFF,
		Mask:           0xFFFFFFFE,
		DosType:        doslist.IDDOSDisk,
	}
}

func (b *ImageBuilder) link(node uint32) {
	if b.lastNode == 0 {
		b.put32(b.dosInfo+4, node>>2)
	} else {
		b.put32(b.lastNode+0, node>>2)
	}
	b.lastNode = node
}

func (b *ImageBuilder) writeEnviron(env *doslist.Environ) uint32 {
	longs := []uint32{
		env.TableSize, env.SizeBlock, env.SecOrg, env.Surfaces,
		env.SectorsPerBlock, env.BlocksPerTrack, env.Reserved,
		env.PreAlloc, env.Interleave, env.LowCyl, env.HighCyl,
		env.NumBuffers, env.BufMemType, env.MaxTransfer, env.Mask,
		uint32(env.BootPri), env.DosType, env.Baud, env.Control,
		env.BootBlocks,
	}
	n := env.TableSize
	if n > uint32(len(longs)-1) {
		n = uint32(len(longs) - 1)
	}
	addr := b.alloc((n + 1) * 4)
	for i := uint32(0); i <= n; i++ {
		b.put32(addr+i*4, longs[i])
	}
	return addr
}

func (b *ImageBuilder) alloc(n uint32) uint32 {
	b.cursor = (b.cursor + 3) &^ 3
	addr := b.cursor
	b.cursor += n
	for int(b.cursor) > len(b.buf) {
		b.buf = append(b.buf, make([]byte, 16*1024)...)
	}
	return addr
}

func (b *ImageBuilder) put32(addr, v uint32) {
	binary.BigEndian.PutUint32(b.buf[addr:], v)
}

func (b *ImageBuilder) put16(addr uint32, v uint16) {
	binary.BigEndian.PutUint16(b.buf[addr:], v)
}

// cstr writes a NUL-terminated string and returns its address.
func (b *ImageBuilder) cstr(s string) uint32 {
	addr := b.alloc(uint32(len(s)) + 1)
	copy(b.buf[addr:], s)
	return addr
}

// bstr writes a length-prefixed string and returns its BPTR.
func (b *ImageBuilder) bstr(s string) bcpl.BPTR {
	if len(s) > 255 {
		s = s[:255]
	}
	addr := b.alloc(uint32(len(s)) + 1)
	b.buf[addr] = byte(len(s))
	copy(b.buf[addr+1:], s)
	return bcpl.BPTR(addr >> 2)
}

func (b *ImageBuilder) initList(list uint32) {
	b.put32(list+0, list+4) // lh_Head -> tail sentinel
	b.put32(list+4, 0)      // lh_Tail
	b.put32(list+8, list)   // lh_TailPred -> head sentinel
}

func (b *ImageBuilder) addTail(list, node uint32) {
	tailPred := binary.BigEndian.Uint32(b.buf[list+8:])
	b.put32(node+0, list+4)   // ln_Succ -> tail sentinel
	b.put32(node+4, tailPred) // ln_Pred
	b.put32(tailPred+0, node)
	b.put32(list+8, node)
}
