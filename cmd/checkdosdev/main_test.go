package main

import (
	"os"
	"path/filepath"
	"testing"

	dosdev "github.com/amigactl/go-dosdev"
	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/status"
	"github.com/amigactl/go-dosdev/testhelper"
)

// openFixture opens an image with three diskimage.device units: IHD101
// has a volume mounted, IHD102 and DH0 have none.
func openFixture(t *testing.T) *dosdev.System {
	t.Helper()
	b := testhelper.NewImageBuilder()
	b.AddExecDevice("diskimage.device")
	task := b.AddDevice(testhelper.Device{Name: "IHD101", Driver: "diskimage.device", Unit: 101})
	b.AddDevice(testhelper.Device{Name: "IHD102", Driver: "diskimage.device", Unit: 102})
	b.AddDevice(testhelper.Device{Name: "DH0", Driver: "diskimage.device", Unit: 0})
	b.AddVolume(testhelper.Volume{Name: "Images", Task: task, DiskType: doslist.IDDOSDisk})

	path := filepath.Join(t.TempDir(), "fixture.mem")
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	sys, err := dosdev.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sys.Close() })
	return sys
}

func withDriver(t *testing.T, driver string) {
	t.Helper()
	prev := opts.driver
	opts.driver = driver
	t.Cleanup(func() { opts.driver = prev })
}

// The scan exits with the least severe classification found, so a script
// can ask whether anything with a prefix is mounted.
func TestScanPatternExitCode(t *testing.T) {
	sys := openFixture(t)
	withDriver(t, "diskimage.device")
	p := printer{quiet: true}

	tests := []struct {
		pattern string
		want    int
	}{
		{"IHD*", status.ExitOK},        // mounted IHD101 wins over IHD102
		{"IHD102*", status.ExitWarn},   // only a unit with no media
		{"DH*", status.ExitWarn},
		{"*", status.ExitOK},
		{"XYZ*", status.ExitError},     // nothing matches
		{"IHD101", status.ExitError},   // no trailing marker matches nothing
	}
	for _, tt := range tests {
		code, err := scanPattern(sys, p, tt.pattern)
		if err != nil {
			t.Fatalf("scanPattern(%q): %v", tt.pattern, err)
		}
		if code != tt.want {
			t.Errorf("scanPattern(%q) = %d, want %d", tt.pattern, code, tt.want)
		}
	}
}

func TestScanPatternDriverUnavailable(t *testing.T) {
	sys := openFixture(t)
	withDriver(t, "nosuch.device")

	code, err := scanPattern(sys, printer{quiet: true}, "IHD*")
	if err != nil {
		t.Fatal(err)
	}
	if code != status.ExitFail {
		t.Errorf("scanPattern with missing driver = %d, want %d", code, status.ExitFail)
	}
}
