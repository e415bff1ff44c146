// Package status classifies DOS devices into the four-valued outcome a
// mount script acts on: mounted, no media, not found, or driver
// unavailable.
package status

import (
	"github.com/amigactl/go-dosdev/doslist"
)

// Classification is the terminal state of one device check.
type Classification int

const (
	// Mounted means the device resolved and reported a volume present.
	Mounted Classification = iota
	// MediaAbsent means the device exists but either could not be opened
	// or reported no disk present. The two are deliberately not
	// distinguished: both mean "registered, safe to (re)mount".
	MediaAbsent
	// NotFound means the identifier resolved to no directory entry.
	NotFound
	// DriverUnavailable means the backing driver itself is missing, so
	// directory contents were never consulted.
	DriverUnavailable
)

// script return codes, ordered by severity
const (
	ExitOK    = 0
	ExitWarn  = 5
	ExitError = 10
	ExitFail  = 20
)

// ExitCode maps a classification to its script return code.
func (c Classification) ExitCode() int {
	switch c {
	case Mounted:
		return ExitOK
	case MediaAbsent:
		return ExitWarn
	case DriverUnavailable:
		return ExitFail
	}
	return ExitError
}

func (c Classification) String() string {
	switch c {
	case Mounted:
		return "mounted"
	case MediaAbsent:
		return "no disk present"
	case NotFound:
		return "device not found"
	case DriverUnavailable:
		return "driver not available"
	}
	return "unknown"
}

// Outcome is the immutable result of one classification.
type Outcome struct {
	Classification Classification
	// Device is the clean (colon-stripped) name the check resolved to; for
	// unit-number addressing this is the owning entry's own name.
	Device string
	// VolumeName is filled best-effort when a volume is mounted.
	VolumeName string
}

// RequesterSuppressor is implemented by handlers that can pop interactive
// "please insert volume" requesters. Suppress turns them off and returns
// the restore that undoes it; the classifier guarantees the restore runs
// on every exit path.
type RequesterSuppressor interface {
	Suppress() (restore func())
}

// Classifier determines a resolved device's status against one directory.
type Classifier struct {
	Dir *doslist.Directory
	// Handler acquires the read handle used for the media query. When nil,
	// the directory's own snapshot handler is used.
	Handler doslist.Handler
}

func (c *Classifier) handler() doslist.Handler {
	if c.Handler != nil {
		return c.Handler
	}
	return c.Dir
}

// Classify runs the per-device state machine: resolve, attempt a handle,
// query media. It never holds the handle past the query, and it never
// returns an error for an absent device or absent media; errors are
// reserved for the image backend failing underneath us.
func (c *Classifier) Classify(name string) (*Outcome, error) {
	clean := doslist.StripDeviceName(name)
	node, err := c.Dir.FindByName(clean)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return &Outcome{Classification: NotFound, Device: clean}, nil
	}

	h := c.handler()
	if rs, ok := h.(RequesterSuppressor); ok {
		defer rs.Suppress()()
	}

	handle, err := h.Lock(clean + ":")
	if err != nil {
		// exists but cannot be opened: same as no media
		return &Outcome{Classification: MediaAbsent, Device: clean}, nil
	}
	defer handle.Close()

	info, err := handle.Info()
	if err != nil || info.DiskType == doslist.IDNoDiskPresent {
		return &Outcome{Classification: MediaAbsent, Device: clean}, nil
	}
	return &Outcome{
		Classification: Mounted,
		Device:         clean,
		VolumeName:     c.Dir.NameAt(info.VolumeNode),
	}, nil
}
