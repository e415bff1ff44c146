package status_test

import (
	"errors"
	"testing"

	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/status"
)

// fakeHandler stands in for a live handler port. It records whether
// requester suppression was active around the lock attempt and whether it
// was restored afterwards.
type fakeHandler struct {
	lockErr     error
	info        *doslist.InfoData
	infoErr     error
	suppressed  bool
	restored    bool
	lockedWith  string
	sawSuppress bool
	open        int
}

func (h *fakeHandler) Suppress() func() {
	h.suppressed = true
	return func() {
		h.suppressed = false
		h.restored = true
	}
}

func (h *fakeHandler) Lock(name string) (doslist.Handle, error) {
	h.lockedWith = name
	h.sawSuppress = h.suppressed
	if h.lockErr != nil {
		return nil, h.lockErr
	}
	h.open++
	return &fakeHandle{h: h}, nil
}

type fakeHandle struct {
	h      *fakeHandler
	closed bool
}

func (l *fakeHandle) Info() (*doslist.InfoData, error) {
	return l.h.info, l.h.infoErr
}

func (l *fakeHandle) Close() error {
	if l.closed {
		return errors.New("closed twice")
	}
	l.closed = true
	l.h.open--
	return nil
}

func TestClassifierUsesInjectedHandler(t *testing.T) {
	h := &fakeHandler{info: &doslist.InfoData{DiskType: doslist.IDDOSDisk}}
	c := &status.Classifier{Dir: buildDirectory(t), Handler: h}

	out, err := c.Classify("DATA")
	if err != nil {
		t.Fatal(err)
	}
	if out.Classification != status.Mounted {
		t.Errorf("classification = %v, want Mounted", out.Classification)
	}
	if h.lockedWith != "DATA:" {
		t.Errorf("handler locked %q, want \"DATA:\" with separator", h.lockedWith)
	}
}

func TestRequesterSuppressionRestoredOnEveryPath(t *testing.T) {
	tests := []struct {
		name string
		h    *fakeHandler
		want status.Classification
	}{
		{
			"mounted",
			&fakeHandler{info: &doslist.InfoData{DiskType: doslist.IDDOSDisk}},
			status.Mounted,
		},
		{
			"lock fails",
			&fakeHandler{lockErr: errors.New("not mounted")},
			status.MediaAbsent,
		},
		{
			"info fails",
			&fakeHandler{infoErr: errors.New("io error")},
			status.MediaAbsent,
		},
		{
			"no disk sentinel",
			&fakeHandler{info: &doslist.InfoData{DiskType: doslist.IDNoDiskPresent}},
			status.MediaAbsent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &status.Classifier{Dir: buildDirectory(t), Handler: tt.h}
			out, err := c.Classify("DH0")
			if err != nil {
				t.Fatal(err)
			}
			if out.Classification != tt.want {
				t.Errorf("classification = %v, want %v", out.Classification, tt.want)
			}
			if !tt.h.sawSuppress {
				t.Error("requesters were not suppressed during the lock attempt")
			}
			if !tt.h.restored || tt.h.suppressed {
				t.Error("requester suppression was not restored")
			}
			if tt.h.open != 0 {
				t.Errorf("%d handle(s) left open", tt.h.open)
			}
		})
	}
}

// An Info query failure is indistinguishable from absent media; the
// classifier must not leak the handle either way.
func TestHandleClosedOnInfoFailure(t *testing.T) {
	h := &fakeHandler{infoErr: errors.New("io error")}
	c := &status.Classifier{Dir: buildDirectory(t), Handler: h}
	if _, err := c.Classify("DH0"); err != nil {
		t.Fatal(err)
	}
	if h.open != 0 {
		t.Errorf("%d handle(s) left open after Info failure", h.open)
	}
}
