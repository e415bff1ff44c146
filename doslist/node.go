package doslist

import (
	"fmt"

	"github.com/amigactl/go-dosdev/bcpl"
	"github.com/amigactl/go-dosdev/memory"
)

// offsets into struct DeviceNode / struct DeviceList (dos/dosextens.h);
// the two share their first three fields and the name slot.
const (
	offNodeNext      = 0  // BPTR to next entry
	offNodeType      = 4  // NodeType
	offNodeTask      = 8  // APTR to handler message port
	offNodeHandler   = 16 // BSTR handler path (device nodes)
	offNodeStack     = 20
	offNodePriority  = 24
	offNodeStartup   = 28 // BPTR to FileSysStartupMsg (device nodes)
	offVolumeDate    = 16 // DateStamp (volume nodes)
	offVolumeDiskTyp = 32 // disk type longword (volume nodes)
	offNodeName      = 40 // BSTR entry name
	nodeSize         = 44
)

// offsets into struct FileSysStartupMsg (dos/filehandler.h)
const (
	offStartupUnit    = 0
	offStartupDevice  = 4 // BSTR driver name
	offStartupEnviron = 8 // BPTR to DosEnvec
	offStartupFlags   = 12
	startupSize       = 16
)

// NodeType is the dn_Type / dl_Type discriminator of a directory entry.
type NodeType uint32

const (
	TypeDevice     NodeType = 0
	TypeDirectory  NodeType = 1
	TypeVolume     NodeType = 2
	TypeLate       NodeType = 3
	TypeNonBinding NodeType = 4
)

func (t NodeType) String() string {
	switch t {
	case TypeDevice:
		return "device"
	case TypeDirectory:
		return "assign"
	case TypeVolume:
		return "volume"
	case TypeLate:
		return "late-binding assign"
	case TypeNonBinding:
		return "non-binding assign"
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// DateStamp is the DOS datestamp of a volume: days since 1978-01-01,
// minutes past midnight, and ticks (1/50 s) past the minute.
type DateStamp struct {
	Days    int32
	Minutes int32
	Ticks   int32
}

// DeviceNode is a point-in-time view of one directory entry. It is decoded
// in full during the traversal that found it; nothing in it refers back to
// the image except the raw addresses kept for reporting.
type DeviceNode struct {
	// Addr is where the node sits in the image.
	Addr bcpl.Addr
	Name string
	Type NodeType
	// Task is the handler's message port, zero when no handler process is
	// bound to the entry.
	Task      bcpl.Addr
	Priority  int32
	StackSize uint32
	// Handler is the decoded dn_Handler path, empty when the slot is null
	// or holds something that does not decode as a BSTR; HandlerRef then
	// keeps the raw reference.
	Handler    string
	HandlerRef bcpl.BPTR
	// Startup is present only for entries mounted from a block driver.
	Startup *Startup

	// volume-node fields, meaningful only when Type == TypeVolume
	DiskType   uint32
	VolumeDate DateStamp

	next bcpl.BPTR
}

// Startup is the decoded FileSysStartupMsg of a device entry: which driver
// and unit back it, and its mount environment.
type Startup struct {
	Unit   uint32
	Driver string
	Flags  uint32
	Env    *Environ
}

// Environ is the DosEnvec mount environment. Fields beyond the vector's
// own TableSize are left zero.
type Environ struct {
	TableSize       uint32
	SizeBlock       uint32 // block size in longwords
	SecOrg          uint32
	Surfaces        uint32
	SectorsPerBlock uint32
	BlocksPerTrack  uint32
	Reserved        uint32
	PreAlloc        uint32
	Interleave      uint32
	LowCyl          uint32
	HighCyl         uint32
	NumBuffers      uint32
	BufMemType      uint32
	MaxTransfer     uint32
	Mask            uint32
	BootPri         int32
	DosType         uint32
	Baud            uint32
	Control         uint32
	BootBlocks      uint32
}

// NumBlocks derives the addressable block count from the cylinder range.
func (e *Environ) NumBlocks() uint32 {
	if e.HighCyl < e.LowCyl {
		return 0
	}
	return (e.HighCyl - e.LowCyl + 1) * e.Surfaces * e.BlocksPerTrack
}

// BlockSize returns the block size in bytes.
func (e *Environ) BlockSize() uint32 {
	return e.SizeBlock * 4
}

// environTableMax is the highest DosEnvec slot we decode (de_BootBlocks).
const environTableMax = 19

// environSanityMax rejects startup messages whose "environment" is really
// a handler-private value; no real mount has a table this long.
const environSanityMax = 64

// readNode decodes the directory entry at addr. Name decoding fails safe:
// an entry whose name BSTR is null, empty, or oversized comes back with an
// empty Name and is skipped by the resolution queries.
func readNode(m memory.Memory, addr bcpl.Addr) (*DeviceNode, error) {
	b, err := memory.Bytes(m, uint32(addr), nodeSize)
	if err != nil {
		return nil, fmt.Errorf("doslist: device node at %v: %w", addr, err)
	}
	n := &DeviceNode{
		Addr:      addr,
		Type:      NodeType(be32(b[offNodeType:])),
		Task:      bcpl.Addr(be32(b[offNodeTask:])),
		next:      bcpl.BPTR(be32(b[offNodeNext:])),
		StackSize: be32(b[offNodeStack:]),
		Priority:  int32(be32(b[offNodePriority:])),
	}
	n.Name, err = bcpl.ReadName(m, bcpl.BPTR(be32(b[offNodeName:])))
	if err != nil {
		return nil, err
	}

	if n.Type == TypeVolume {
		n.DiskType = be32(b[offVolumeDiskTyp:])
		n.VolumeDate = DateStamp{
			Days:    int32(be32(b[offVolumeDate:])),
			Minutes: int32(be32(b[offVolumeDate+4:])),
			Ticks:   int32(be32(b[offVolumeDate+8:])),
		}
		return n, nil
	}

	n.HandlerRef = bcpl.BPTR(be32(b[offNodeHandler:]))
	n.Handler, err = bcpl.ReadName(m, n.HandlerRef)
	if err != nil {
		return nil, err
	}
	n.Startup, err = readStartup(m, bcpl.BPTR(be32(b[offNodeStartup:])))
	if err != nil {
		return nil, err
	}
	return n, nil
}

// readStartup decodes a FileSysStartupMsg. Port handlers abuse dn_Startup
// to carry a small integer instead of a BPTR, so anything that does not
// point at a plausible message inside the image is treated as absent.
func readStartup(m memory.Memory, p bcpl.BPTR) (*Startup, error) {
	if p == 0 {
		return nil, nil
	}
	addr := uint32(p.Addr())
	if !memory.Contains(m, addr, startupSize) {
		return nil, nil
	}
	b, err := memory.Bytes(m, addr, startupSize)
	if err != nil {
		return nil, fmt.Errorf("doslist: startup msg at %#x: %w", addr, err)
	}
	s := &Startup{
		Unit:  be32(b[offStartupUnit:]),
		Flags: be32(b[offStartupFlags:]),
	}
	s.Driver, err = bcpl.ReadName(m, bcpl.BPTR(be32(b[offStartupDevice:])))
	if err != nil {
		return nil, err
	}
	s.Env, err = readEnviron(m, bcpl.BPTR(be32(b[offStartupEnviron:])))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func readEnviron(m memory.Memory, p bcpl.BPTR) (*Environ, error) {
	if p == 0 {
		return nil, nil
	}
	addr := uint32(p.Addr())
	tableSize, err := memory.Long(m, addr)
	if err != nil {
		return nil, nil // out-of-image environment, treat as absent
	}
	if tableSize == 0 || tableSize > environSanityMax {
		return nil, nil
	}
	n := tableSize
	if n > environTableMax {
		n = environTableMax
	}
	b, err := memory.Bytes(m, addr, int(n+1)*4)
	if err != nil {
		return nil, fmt.Errorf("doslist: environment at %#x: %w", addr, err)
	}
	long := func(i uint32) uint32 {
		if i > n {
			return 0
		}
		return be32(b[i*4:])
	}
	return &Environ{
		TableSize:       tableSize,
		SizeBlock:       long(1),
		SecOrg:          long(2),
		Surfaces:        long(3),
		SectorsPerBlock: long(4),
		BlocksPerTrack:  long(5),
		Reserved:        long(6),
		PreAlloc:        long(7),
		Interleave:      long(8),
		LowCyl:          long(9),
		HighCyl:         long(10),
		NumBuffers:      long(11),
		BufMemType:      long(12),
		MaxTransfer:     long(13),
		Mask:            long(14),
		BootPri:         int32(long(15)),
		DosType:         long(16),
		Baud:            long(17),
		Control:         long(18),
		BootBlocks:      long(19),
	}, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
