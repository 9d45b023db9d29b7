package perudb_test

import (
	"path/filepath"
	"testing"

	"github.com/oda/perudb"
)

func TestInsertFindDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	c := perudb.Citizen{DNI: 12345678, Nombres: "Maria", Apellidos: "Torres", Direccion: "Calle Lima 100"}

	ok, err := db.Insert(c)
	if err != nil || !ok {
		t.Fatalf("Insert failed: ok=%v err=%v", ok, err)
	}

	got, found, err := db.Find(c.DNI)
	if err != nil || !found {
		t.Fatalf("Find failed: found=%v err=%v", found, err)
	}
	if got != c {
		t.Errorf("expected %+v, got %+v", c, got)
	}

	ok, err = db.Delete(c.DNI)
	if err != nil || !ok {
		t.Fatalf("Delete failed: ok=%v err=%v", ok, err)
	}

	if _, found, _ := db.Find(c.DNI); found {
		t.Errorf("expected citizen to be gone after delete")
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	c := perudb.Citizen{DNI: 1, Nombres: "A", Apellidos: "B", Direccion: "C"}
	if ok, err := db.Insert(c); err != nil || !ok {
		t.Fatalf("first Insert failed: ok=%v err=%v", ok, err)
	}

	ok, err := db.Insert(c)
	if err != nil {
		t.Fatalf("duplicate Insert returned an error instead of a rejection: %v", err)
	}
	if ok {
		t.Errorf("expected duplicate Insert to be rejected")
	}
}

func TestFindMissingReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	_, found, err := db.Find(999)
	if err != nil {
		t.Fatalf("Find returned error for a missing key: %v", err)
	}
	if found {
		t.Errorf("expected not found")
	}
}

func TestUpdateSmallerOrEqualSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	c := perudb.Citizen{DNI: 5, Nombres: "Original Nombres", Apellidos: "Apellidos", Direccion: "Direccion Larga 123"}
	db.Insert(c)

	updated := c
	updated.Direccion = "Corta"
	ok, err := db.Update(updated)
	if err != nil || !ok {
		t.Fatalf("Update failed: ok=%v err=%v", ok, err)
	}

	got, _, _ := db.Find(5)
	if got.Direccion != "Corta" {
		t.Errorf("expected updated direccion, got %q", got.Direccion)
	}
}

func TestUpdateLargerIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	c := perudb.Citizen{DNI: 5, Nombres: "A", Apellidos: "B", Direccion: "C"}
	db.Insert(c)

	grown := c
	grown.Direccion = "A much, much longer address than before"
	ok, err := db.Update(grown)
	if err != nil {
		t.Fatalf("Update returned an error instead of a rejection: %v", err)
	}
	if ok {
		t.Errorf("expected oversized Update to be rejected")
	}

	got, _, _ := db.Find(5)
	if got != c {
		t.Errorf("expected original record to survive a rejected update, got %+v", got)
	}
}

func TestDeleteMissingIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	ok, err := db.Delete(42)
	if err != nil {
		t.Fatalf("Delete returned an error for a missing key: %v", err)
	}
	if ok {
		t.Errorf("expected Delete of a missing key to be rejected")
	}
}

func TestReopenPersistsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	const n = 500
	for i := 0; i < n; i++ {
		db.Insert(perudb.Citizen{
			DNI:       uint32(10000000 + i),
			Nombres:   "Nombre",
			Apellidos: "Apellido",
			Direccion: "Direccion",
		})
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db2, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db2.Close()

	for i := 0; i < n; i++ {
		dni := uint32(10000000 + i)
		c, found, err := db2.Find(dni)
		if err != nil || !found {
			t.Fatalf("dni %d missing after reopen: found=%v err=%v", dni, found, err)
		}
		if c.DNI != dni {
			t.Fatalf("dni mismatch after reopen: got %d want %d", c.DNI, dni)
		}
	}
}

func TestBulkInsertFindDeleteAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := perudb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	const n = 3000
	for i := 0; i < n; i++ {
		dni := uint32(20000000 + i)
		ok, err := db.Insert(perudb.Citizen{DNI: dni, Nombres: "N", Apellidos: "A", Direccion: "D"})
		if err != nil || !ok {
			t.Fatalf("Insert(%d) failed: ok=%v err=%v", dni, ok, err)
		}
	}

	for i := 0; i < n; i++ {
		dni := uint32(20000000 + i)
		if _, found, err := db.Find(dni); err != nil || !found {
			t.Fatalf("Find(%d) failed: found=%v err=%v", dni, found, err)
		}
	}

	for i := 0; i < n; i++ {
		dni := uint32(20000000 + i)
		ok, err := db.Delete(dni)
		if err != nil || !ok {
			t.Fatalf("Delete(%d) failed: ok=%v err=%v", dni, ok, err)
		}
	}

	for i := 0; i < n; i++ {
		dni := uint32(20000000 + i)
		if _, found, _ := db.Find(dni); found {
			t.Fatalf("dni %d still present after bulk delete", dni)
		}
	}
}
