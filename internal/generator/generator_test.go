package generator_test

import (
	"math/rand"
	"testing"

	"github.com/oda/perudb/internal/citizen"
	"github.com/oda/perudb/internal/generator"
)

func TestRandomCitizenFieldsAreNonEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	c := generator.RandomCitizen(rng)
	if c.DNI < 10000000 || c.DNI > 99999999 {
		t.Errorf("DNI out of expected range: %d", c.DNI)
	}
	if c.Nombres == "" || c.Apellidos == "" || c.Direccion == "" {
		t.Errorf("expected all fields populated, got %+v", c)
	}
}

type fakeInserter struct {
	seen map[uint32]bool
}

func (f *fakeInserter) Insert(c citizen.Citizen) (bool, error) {
	if f.seen[c.DNI] {
		return false, nil
	}
	f.seen[c.DNI] = true
	return true, nil
}

func TestBulkLoadCountsInsertedRecords(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	db := &fakeInserter{seen: make(map[uint32]bool)}

	inserted, failed, err := generator.BulkLoad(db, rng, 50, 0, nil)
	if err != nil {
		t.Fatalf("BulkLoad failed: %v", err)
	}
	if inserted+failed != 50 {
		t.Errorf("expected inserted+failed to equal the requested count, got %d+%d", inserted, failed)
	}
	if inserted == 0 {
		t.Errorf("expected at least some records to be inserted")
	}
}

func TestBulkLoadReportsProgress(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	db := &fakeInserter{seen: make(map[uint32]bool)}

	var reports int
	generator.BulkLoad(db, rng, 25, 10, func(p generator.Progress) {
		reports++
	})

	if reports == 0 {
		t.Errorf("expected at least one progress report")
	}
}
