package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	dosdev "github.com/amigactl/go-dosdev"
	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/memory"
	"github.com/amigactl/go-dosdev/mountlist"
	"github.com/amigactl/go-dosdev/status"
	"github.com/amigactl/go-dosdev/util"
)

// report emits the --info and/or --mountlist reports for a device that
// resolved. Reports go to stdout regardless of --quiet; asking for a
// report and silencing it would leave nothing.
func report(sys *dosdev.System, out *status.Outcome) error {
	node, err := sys.Dir.FindByName(out.Device)
	if err != nil {
		return err
	}
	if node == nil {
		// raced away on a live image between classification and reporting
		return fmt.Errorf("device %s disappeared from the directory", out.Device)
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		if raw, err := memory.Bytes(sys.Mem, uint32(node.Addr), 44); err == nil {
			log.Debugf("device node at %v:\n%s", node.Addr, util.DumpByteSlice(raw, 16))
		}
	}
	var vol *doslist.DeviceNode
	if node.Task != 0 {
		if vol, err = sys.Dir.FindVolumeByTask(node.Task); err != nil {
			return err
		}
	}
	if opts.info {
		printInfo(node, vol, out)
	}
	if opts.mountlist {
		if err := mountlist.Write(os.Stdout, node); err != nil {
			return err
		}
	}
	return nil
}

func printInfo(n, vol *doslist.DeviceNode, out *status.Outcome) {
	row := func(key string, format string, args ...interface{}) {
		fmt.Printf("%-16s %s\n", key+":", fmt.Sprintf(format, args...))
	}
	row("Device", "%s:", n.Name)
	row("Type", "%s", n.Type)
	row("Status", "%s", out.Classification)
	if out.VolumeName != "" {
		row("Volume", "%q", out.VolumeName)
	}
	if vol != nil {
		dt := vol.DiskType
		if dt == 0 {
			dt = doslist.IDDOSDisk
		}
		row("Media", "%s", doslist.DiskTypeName(dt))
	}
	if n.Task != 0 {
		row("Task", "%v", n.Task)
	}
	handler := n.Handler
	inferred := false
	if handler == "" && n.Startup != nil && n.Startup.Env != nil {
		handler = mountlist.HandlerFor(n.Startup.Env.DosType)
		inferred = true
	}
	if handler != "" {
		if inferred {
			row("Handler", "%s (inferred)", handler)
		} else {
			row("Handler", "%s", handler)
		}
	}
	if n.StackSize != 0 {
		row("StackSize", "%d", n.StackSize)
	}
	if n.Priority != 0 {
		row("Priority", "%d", n.Priority)
	}

	s := n.Startup
	if s == nil {
		return
	}
	row("Driver", "%s", s.Driver)
	row("Unit", "%d", s.Unit)
	row("Flags", "%d", s.Flags)
	env := s.Env
	if env == nil {
		return
	}
	row("Surfaces", "%d", env.Surfaces)
	row("BlocksPerTrack", "%d", env.BlocksPerTrack)
	row("Cylinders", "%d-%d", env.LowCyl, env.HighCyl)
	row("BlockSize", "%d", env.BlockSize())
	row("TotalBlocks", "%d", env.NumBlocks())
	row("Reserved", "%d", env.Reserved)
	if env.Interleave != 0 {
		row("Interleave", "%d", env.Interleave)
	}
	row("Buffers", "%d", env.NumBuffers)
	row("BufMemType", "%d", env.BufMemType)
	row("MaxTransfer", "0x%08X", env.MaxTransfer)
	row("Mask", "0x%08X", env.Mask)
	if env.BootPri != 0 {
		row("BootPri", "%d", env.BootPri)
	}
	row("DosType", "%s", mountlist.FormatDosType(env.DosType))
}
