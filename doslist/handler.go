package doslist

import (
	"errors"
	"fmt"

	"github.com/amigactl/go-dosdev/bcpl"
)

// disk type sentinels reported in InfoData.DiskType (dos/dos.h)
const (
	IDNoDiskPresent  uint32 = 0xFFFFFFFF // ID_NO_DISK_PRESENT (-1)
	IDUnreadableDisk uint32 = 0x42414400 // 'BAD\0'
	IDDOSDisk        uint32 = 0x444F5300 // 'DOS\0'
	IDNotReallyDOS   uint32 = 0x4E444F53 // 'NDOS'
	IDKickstartDisk  uint32 = 0x4B49434B // 'KICK'
)

// ErrNoHandler means the entry exists but has no handler process bound,
// so nothing can answer a lock request for it.
var ErrNoHandler = errors.New("doslist: device has no handler process")

// DiskTypeName renders a disk type sentinel for display. Signatures in the
// DOS family keep their revision byte visible; anything unrecognized is
// shown raw.
func DiskTypeName(t uint32) string {
	switch t {
	case IDNoDiskPresent:
		return "no disk present"
	case IDUnreadableDisk:
		return "unreadable disk"
	case IDNotReallyDOS:
		return "not a DOS disk"
	case IDKickstartDisk:
		return "Kickstart disk"
	}
	if t&^0xFF == IDDOSDisk {
		return fmt.Sprintf("DOS disk (0x%08X)", t)
	}
	return fmt.Sprintf("0x%08X", t)
}

// InfoData mirrors what a handler returns for ACTION_DISK_INFO: enough to
// tell whether media is present and which volume serves it.
type InfoData struct {
	UnitNumber    uint32
	NumBlocks     uint32
	NumBlocksUsed uint32
	BytesPerBlock uint32
	DiskType      uint32
	// VolumeNode refers to the volume entry when media is present.
	VolumeNode bcpl.BPTR
}

// Handle is a transient read handle on a device, obtained from a Handler
// and released with Close on every path.
type Handle interface {
	Info() (*InfoData, error)
	Close() error
}

// Handler acquires read handles by device name (with trailing colon). The
// Directory itself is the snapshot-backed implementation; a live port
// would put real Lock()/Info() calls behind the same two methods.
type Handler interface {
	Lock(name string) (Handle, error)
}

// Lock implements Handler against the image. It succeeds when the entry
// exists and has a handler process; media presence is decided later, by
// Info, exactly as with a real handler.
func (d *Directory) Lock(name string) (Handle, error) {
	n, err := d.FindByName(name)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("doslist: no such device %q", StripDeviceName(name))
	}
	if n.Task == 0 {
		return nil, ErrNoHandler
	}
	return &snapshotHandle{dir: d, node: n}, nil
}

// snapshotHandle answers Info from the volume chain in the same image: a
// device has media exactly when a volume entry is served by its handler
// port.
type snapshotHandle struct {
	dir    *Directory
	node   *DeviceNode
	closed bool
}

func (h *snapshotHandle) Info() (*InfoData, error) {
	if h.closed {
		return nil, errors.New("doslist: info on closed handle")
	}
	info := &InfoData{DiskType: IDNoDiskPresent}
	if s := h.node.Startup; s != nil {
		info.UnitNumber = s.Unit
		if s.Env != nil {
			info.NumBlocks = s.Env.NumBlocks()
			info.BytesPerBlock = s.Env.BlockSize()
		}
	}
	vol, err := h.dir.FindVolumeByTask(h.node.Task)
	if err != nil {
		return nil, err
	}
	if vol == nil {
		return info, nil
	}
	info.DiskType = vol.DiskType
	if info.DiskType == 0 {
		// handlers that never fill dl_DiskType still have a volume inserted
		info.DiskType = IDDOSDisk
	}
	info.VolumeNode = bcpl.ToBPTR(vol.Addr)
	return info, nil
}

func (h *snapshotHandle) Close() error {
	if h.closed {
		return errors.New("doslist: handle closed twice")
	}
	h.closed = true
	return nil
}
