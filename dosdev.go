// Package dosdev inspects the DOS device directory embedded in an Amiga
// memory image: which devices are registered, which driver and unit back
// them, and whether they currently have a volume mounted.
//
// It decodes kernel structures out of the image directly and never mounts
// anything. The image can be a raw RAM dump, an xz- or lz4-compressed
// dump, or (on linux) a live mapping of an emulator's guest memory.
//
// Typical use:
//
//	sys, err := dosdev.Open("a4000.mem")
//	if err != nil { ... }
//	defer sys.Close()
//
//	c := &status.Classifier{Dir: sys.Dir}
//	out, err := status.Check(c, sys.ProbeDriver, "DH0:", "")
//	os.Exit(out.Classification.ExitCode())
package dosdev

import (
	log "github.com/sirupsen/logrus"

	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/execbase"
	"github.com/amigactl/go-dosdev/memory"
)

// System is an opened image with its exec and DOS anchors located.
type System struct {
	Mem  memory.Memory
	Exec *execbase.ExecBase
	Dir  *doslist.Directory
}

// Open opens a memory image file and locates ExecBase and the DOS device
// directory inside it. Compressed images are recognized by magic.
func Open(path string) (*System, error) {
	m, err := memory.Open(path)
	if err != nil {
		return nil, err
	}
	sys, err := attach(m, nil)
	if err != nil {
		closeMemory(m)
		return nil, err
	}
	return sys, nil
}

// Map opens a live image with a shared mapping. Scans are serialized with
// a mutex exclusion, since the emulator behind the mapping keeps running.
func Map(path string) (*System, error) {
	m, err := memory.Map(path)
	if err != nil {
		return nil, err
	}
	sys, err := attach(m, &doslist.MutexExclusion{})
	if err != nil {
		closeMemory(m)
		return nil, err
	}
	return sys, nil
}

// New locates the anchors in an already-open Memory.
func New(m memory.Memory, excl doslist.Exclusion) (*System, error) {
	return attach(m, excl)
}

func attach(m memory.Memory, excl doslist.Exclusion) (*System, error) {
	exec, err := execbase.Find(m)
	if err != nil {
		return nil, err
	}
	version, err := exec.Version()
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"base": exec.Base(), "version": version}).Debug("located ExecBase")
	dosBase, err := exec.DOSBase()
	if err != nil {
		return nil, err
	}
	log.WithField("base", dosBase).Debug("located dos.library")
	dir, err := doslist.New(m, dosBase, excl)
	if err != nil {
		return nil, err
	}
	return &System{Mem: m, Exec: exec, Dir: dir}, nil
}

// ProbeDriver reports whether the named driver is loaded in the image. It
// satisfies status.Probe.
func (s *System) ProbeDriver(driver string) (bool, error) {
	return s.Exec.HasDevice(driver)
}

// Close releases the underlying image when it holds a file or mapping.
func (s *System) Close() error {
	return closeMemory(s.Mem)
}

func closeMemory(m memory.Memory) error {
	if c, ok := m.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
