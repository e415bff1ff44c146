package doslist_test

import (
	"errors"
	"testing"

	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/testhelper"
)

func TestLockNoSuchDevice(t *testing.T) {
	b := testhelper.NewImageBuilder()
	d := newDirectory(t, b, nil)
	if _, err := d.Lock("DH0:"); err == nil {
		t.Error("Lock on missing device should fail")
	}
}

func TestLockNoHandler(t *testing.T) {
	b := testhelper.NewImageBuilder()
	b.AddDevice(testhelper.Device{Name: "DH0", Driver: "scsi.device", NoTask: true})
	d := newDirectory(t, b, nil)
	if _, err := d.Lock("DH0:"); !errors.Is(err, doslist.ErrNoHandler) {
		t.Errorf("Lock = %v, want ErrNoHandler", err)
	}
}

func TestLockAndInfoWithVolume(t *testing.T) {
	b := testhelper.NewImageBuilder()
	task := b.AddDevice(testhelper.Device{Name: "DH0", Driver: "scsi.device"})
	b.AddVolume(testhelper.Volume{Name: "Work", Task: task, DiskType: doslist.IDDOSDisk})
	d := newDirectory(t, b, nil)

	h, err := d.Lock("DH0:")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	info, err := h.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.DiskType != doslist.IDDOSDisk {
		t.Errorf("DiskType = %#x, want ID_DOS_DISK", info.DiskType)
	}
	if info.VolumeNode == 0 {
		t.Error("VolumeNode = 0, want a volume reference")
	}
	if got := d.NameAt(info.VolumeNode); got != "Work" {
		t.Errorf("volume name = %q, want Work", got)
	}
	env := testhelper.DefaultEnviron()
	if want := env.NumBlocks(); info.NumBlocks != want {
		t.Errorf("NumBlocks = %d, want %d", info.NumBlocks, want)
	}
	if info.BytesPerBlock != 512 {
		t.Errorf("BytesPerBlock = %d, want 512", info.BytesPerBlock)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestInfoNoVolume(t *testing.T) {
	b := testhelper.NewImageBuilder()
	b.AddDevice(testhelper.Device{Name: "IHD101", Driver: "diskimage.device", Unit: 101})
	d := newDirectory(t, b, nil)

	h, err := d.Lock("IHD101:")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer h.Close()
	info, err := h.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.DiskType != doslist.IDNoDiskPresent {
		t.Errorf("DiskType = %#x, want ID_NO_DISK_PRESENT", info.DiskType)
	}
	if info.UnitNumber != 101 {
		t.Errorf("UnitNumber = %d, want 101", info.UnitNumber)
	}
}

func TestInfoUnsetDiskTypeCountsAsDOS(t *testing.T) {
	b := testhelper.NewImageBuilder()
	task := b.AddDevice(testhelper.Device{Name: "DH0", Driver: "scsi.device"})
	b.AddVolume(testhelper.Volume{Name: "Work", Task: task}) // dl_DiskType left zero
	d := newDirectory(t, b, nil)

	h, err := d.Lock("DH0")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	info, err := h.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.DiskType != doslist.IDDOSDisk {
		t.Errorf("DiskType = %#x, want ID_DOS_DISK substitute", info.DiskType)
	}
}

func TestDiskTypeName(t *testing.T) {
	tests := []struct {
		t    uint32
		want string
	}{
		{doslist.IDNoDiskPresent, "no disk present"},
		{doslist.IDUnreadableDisk, "unreadable disk"},
		{doslist.IDNotReallyDOS, "not a DOS disk"},
		{doslist.IDKickstartDisk, "Kickstart disk"},
		{doslist.IDDOSDisk, "DOS disk (0x444F5300)"},
		{0x444F5303, "DOS disk (0x444F5303)"}, // FFS international, same family
		{0x53465300, "0x53465300"},
	}
	for _, tt := range tests {
		if got := doslist.DiskTypeName(tt.t); got != tt.want {
			t.Errorf("DiskTypeName(%#x) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestHandleClosedTwice(t *testing.T) {
	b := testhelper.NewImageBuilder()
	b.AddDevice(testhelper.Device{Name: "DH0", Driver: "scsi.device"})
	d := newDirectory(t, b, nil)

	h, err := d.Lock("DH0:")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err == nil {
		t.Error("second Close should fail")
	}
	if _, err := h.Info(); err == nil {
		t.Error("Info after Close should fail")
	}
}
