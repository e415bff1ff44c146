package testhelper_test

import (
	"fmt"
	"testing"

	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/execbase"
	"github.com/amigactl/go-dosdev/testhelper"
)

// A Memory view taken before building must keep reading the builder's
// buffer after enough Add calls to force the buffer to grow and
// reallocate its backing array.
func TestMemoryStaysValidAcrossGrowth(t *testing.T) {
	b := testhelper.NewImageBuilder()
	m := b.Memory()
	initial := m.Size()

	for i := 0; i < 400; i++ {
		b.AddDevice(testhelper.Device{
			Name:   fmt.Sprintf("IHD%03d", i),
			Driver: "diskimage.device",
			Unit:   uint32(i),
		})
	}
	if m.Size() <= initial {
		t.Fatalf("image stayed at %d bytes, growth never happened", initial)
	}

	e, err := execbase.Find(m)
	if err != nil {
		t.Fatal(err)
	}
	dosBase, err := e.DOSBase()
	if err != nil {
		t.Fatal(err)
	}
	d, err := doslist.New(m, dosBase, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := d.FindByName("IHD399")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil || n.Startup == nil || n.Startup.Unit != 399 {
		t.Errorf("device added after the view was taken did not resolve: %+v", n)
	}
}

// Corruption applied through Bytes must be visible to an existing view.
func TestMemorySharesBytes(t *testing.T) {
	b := testhelper.NewImageBuilder()
	m := b.Memory()
	if _, err := execbase.Find(m); err != nil {
		t.Fatal(err)
	}
	b.Bytes()[4] = 0xFF // clobber AbsExecBase
	if _, err := execbase.Find(m); err == nil {
		t.Error("view did not observe corruption applied through Bytes")
	}
}
