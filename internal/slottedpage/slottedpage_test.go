package slottedpage_test

import (
	"bytes"
	"testing"

	"github.com/oda/perudb/internal/slottedpage"
)

func newTestPage() *slottedpage.Page {
	buf := make([]byte, 4096)
	p := slottedpage.New(buf)
	p.Init()
	return p
}

func TestInsertRead(t *testing.T) {
	p := newTestPage()

	record := []byte("hello record")
	id := p.Insert(record)
	if id == slottedpage.InvalidSlotID {
		t.Fatalf("Insert failed unexpectedly")
	}

	got, ok := p.Read(id)
	if !ok {
		t.Fatalf("Read failed for just-inserted slot")
	}
	if !bytes.Equal(got, record) {
		t.Errorf("expected %q, got %q", record, got)
	}

	if p.RecordCount() != 1 {
		t.Errorf("expected record count 1, got %d", p.RecordCount())
	}
}

func TestDeleteTombstones(t *testing.T) {
	p := newTestPage()

	id := p.Insert([]byte("record a"))
	if !p.Delete(id) {
		t.Fatalf("Delete failed")
	}

	if _, ok := p.Read(id); ok {
		t.Errorf("expected Read to fail after Delete")
	}

	if p.Delete(id) {
		t.Errorf("expected second Delete of the same slot to fail")
	}
}

func TestInsertIntoSlotReusesTombstone(t *testing.T) {
	p := newTestPage()

	id := p.Insert([]byte("original"))
	p.Delete(id)

	if !p.InsertIntoSlot(id, []byte("replacement")) {
		t.Fatalf("InsertIntoSlot failed on a tombstoned slot")
	}

	got, ok := p.Read(id)
	if !ok {
		t.Fatalf("Read failed after InsertIntoSlot")
	}
	if string(got) != "replacement" {
		t.Errorf("expected replacement record, got %q", got)
	}
}

func TestInsertIntoSlotDoesNotChargeForANewDirectoryEntry(t *testing.T) {
	p := newTestPage()

	// A fresh 4096-byte page has 4084 bytes of free space (4096 - the
	// 12-byte header). Insert a 2-byte record (consumes 4+2=6, leaving
	// 4078), then a 4072-byte filler (consumes 4+4072=4076, leaving
	// exactly 2) so that after tombstoning the first record, the page
	// has exactly 2 bytes of heap space and no room for a new directory
	// entry at all.
	id := p.Insert([]byte("ab"))
	if id == slottedpage.InvalidSlotID {
		t.Fatalf("initial Insert failed unexpectedly")
	}
	if sid := p.Insert(make([]byte, 4072)); sid == slottedpage.InvalidSlotID {
		t.Fatalf("filler Insert failed unexpectedly")
	}

	p.Delete(id)

	if p.HasSpace(2) {
		t.Fatalf("test setup invalid: expected no room for a fresh 2-byte slot")
	}

	if !p.InsertIntoSlot(id, []byte("cd")) {
		t.Fatalf("InsertIntoSlot should succeed when only heap space (not directory space) remains")
	}

	got, ok := p.Read(id)
	if !ok || string(got) != "cd" {
		t.Errorf("expected replacement record \"cd\", got %q (ok=%v)", got, ok)
	}
}

func TestInsertIntoSlotRejectsLiveSlot(t *testing.T) {
	p := newTestPage()

	id := p.Insert([]byte("live"))
	if p.InsertIntoSlot(id, []byte("overwrite")) {
		t.Errorf("expected InsertIntoSlot to reject a non-tombstoned slot")
	}
}

func TestHasSpaceAndFull(t *testing.T) {
	p := newTestPage()

	if !p.HasSpace(100) {
		t.Errorf("expected space on a fresh page")
	}

	big := make([]byte, 5000)
	if id := p.Insert(big); id != slottedpage.InvalidSlotID {
		t.Errorf("expected Insert to reject an oversized record")
	}
}

func TestMultipleInsertsDistinctSlots(t *testing.T) {
	p := newTestPage()

	id1 := p.Insert([]byte("first"))
	id2 := p.Insert([]byte("second"))

	if id1 == id2 {
		t.Fatalf("expected distinct slot ids")
	}

	v1, _ := p.Read(id1)
	v2, _ := p.Read(id2)
	if string(v1) != "first" || string(v2) != "second" {
		t.Errorf("records overwrote each other: %q %q", v1, v2)
	}
}
