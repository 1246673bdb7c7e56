package lsm

import (
	"bytes"
	"testing"

	"github.com/btree-query-bench/btnode/dbms/pager"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
)

func openMem(t *testing.T, fs vfs.FS) *Store {
	t.Helper()
	s, err := Open("pages", Options{FS: fs})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestAllocateReadWrite(t *testing.T) {
	s := openMem(t, vfs.NewMem())
	defer s.Close()

	for want := pager.PageID(0); want < 3; want++ {
		id, err := s.Allocate()
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if id != want {
			t.Errorf("Allocate() = %d, want %d", id, want)
		}
	}

	blank, err := s.Read(2)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if *blank != (pager.Page{}) {
		t.Error("freshly allocated page is not zeroed")
	}

	var pg pager.Page
	copy(pg[:], "leaf")
	pg[pager.PageSize-1] = 1
	if err := s.Write(1, &pg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := s.Read(1)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got[:], pg[:]) {
		t.Error("Read returned different bytes than were written")
	}
}

func TestOutOfRange(t *testing.T) {
	s := openMem(t, vfs.NewMem())
	defer s.Close()
	_, _ = s.Allocate()

	for _, id := range []pager.PageID{-1, 1, 50} {
		if _, err := s.Read(id); !errors.Is(err, pager.ErrPageOutOfRange) {
			t.Errorf("Read(%d) error = %v, want ErrPageOutOfRange", id, err)
		}
		var pg pager.Page
		if err := s.Write(id, &pg); !errors.Is(err, pager.ErrPageOutOfRange) {
			t.Errorf("Write(%d) error = %v, want ErrPageOutOfRange", id, err)
		}
	}
}

func TestReopenKeepsCountAndPages(t *testing.T) {
	fs := vfs.NewMem()
	s := openMem(t, fs)
	for i := 0; i < 4; i++ {
		if _, err := s.Allocate(); err != nil {
			t.Fatal(err)
		}
	}
	var pg pager.Page
	pg[7] = 0x5A
	if err := s.Write(3, &pg); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s = openMem(t, fs)
	defer s.Close()
	if s.PageCount() != 4 {
		t.Errorf("PageCount() = %d, want 4", s.PageCount())
	}
	got, err := s.Read(3)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[7] != 0x5A {
		t.Errorf("byte 7 = %#x, want 0x5a", got[7])
	}
}

func TestClosedStore(t *testing.T) {
	s := openMem(t, vfs.NewMem())
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Allocate(); !errors.Is(err, pager.ErrClosed) {
		t.Errorf("Allocate after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
}

func TestPageKeysSortById(t *testing.T) {
	ids := []pager.PageID{0, 1, 255, 256, 70000}
	for i := 1; i < len(ids); i++ {
		if bytes.Compare(encodePageKey(ids[i-1]), encodePageKey(ids[i])) >= 0 {
			t.Errorf("key(%d) does not sort before key(%d)", ids[i-1], ids[i])
		}
	}
}
