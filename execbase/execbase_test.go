package execbase_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/amigactl/go-dosdev/execbase"
	"github.com/amigactl/go-dosdev/memory"
	"github.com/amigactl/go-dosdev/testhelper"
)

func TestFind(t *testing.T) {
	b := testhelper.NewImageBuilder()
	e, err := execbase.Find(b.Memory())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if e.Base() == 0 {
		t.Error("Base() = 0")
	}
}

func TestFindRejectsBadChkBase(t *testing.T) {
	b := testhelper.NewImageBuilder()
	raw := b.Bytes()
	base := binary.BigEndian.Uint32(raw[4:])
	binary.BigEndian.PutUint32(raw[base+38:], 0) // clobber the complement
	if _, err := execbase.Find(b.Memory()); !errors.Is(err, execbase.ErrNotAmigaImage) {
		t.Errorf("Find = %v, want ErrNotAmigaImage", err)
	}
}

func TestFindRejectsNonImage(t *testing.T) {
	for _, img := range [][]byte{
		make([]byte, 1024),        // all zero
		bytes.Repeat([]byte{0xFF}, 1024), // base points outside
		make([]byte, 2),           // too small for AbsExecBase
	} {
		if _, err := execbase.Find(memory.NewBuffer(img)); err == nil {
			t.Errorf("Find on %d-byte garbage image should fail", len(img))
		}
	}
}

func TestDevices(t *testing.T) {
	b := testhelper.NewImageBuilder()
	b.AddExecDevice("trackdisk.device")
	b.AddExecDevice("scsi.device")
	b.AddExecDevice("diskimage.device")

	e, err := execbase.Find(b.Memory())
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Devices()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"trackdisk.device", "scsi.device", "diskimage.device"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Devices() mismatch (-want +got):\n%s", diff)
	}
}

func TestHasDevice(t *testing.T) {
	b := testhelper.NewImageBuilder()
	b.AddExecDevice("diskimage.device")
	e, err := execbase.Find(b.Memory())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"diskimage.device", true},
		{"trackdisk.device", false},
		{"Diskimage.Device", false}, // FindName is exact
		{"", false},
	}
	for _, tt := range tests {
		got, err := e.HasDevice(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("HasDevice(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVersion(t *testing.T) {
	b := testhelper.NewImageBuilder()
	e, err := execbase.Find(b.Memory())
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != 40 {
		t.Errorf("Version() = %d, want 40", v)
	}
}

func TestDOSBase(t *testing.T) {
	b := testhelper.NewImageBuilder()
	e, err := execbase.Find(b.Memory())
	if err != nil {
		t.Fatal(err)
	}
	base, err := e.DOSBase()
	if err != nil {
		t.Fatalf("DOSBase: %v", err)
	}
	if base == 0 {
		t.Error("DOSBase() = 0")
	}
}

func TestDOSBaseMissing(t *testing.T) {
	b := testhelper.NewImageBuilder()
	raw := b.Bytes()
	i := bytes.Index(raw, []byte("dos.library\x00"))
	if i < 0 {
		t.Fatal("dos.library name not found in image")
	}
	raw[i] = 'x' // now named "xos.library"

	e, err := execbase.Find(b.Memory())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.DOSBase(); !errors.Is(err, execbase.ErrNoDOSLibrary) {
		t.Errorf("DOSBase = %v, want ErrNoDOSLibrary", err)
	}
}
