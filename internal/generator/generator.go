// Package generator synthesizes random citizen records for bulk-load
// testing and benchmarking.
package generator

import (
	"fmt"
	"math/rand"

	"github.com/oda/perudb/internal/citizen"
)

var nombres = []string{
	"Juan", "Maria", "Carlos", "Ana", "Luis", "Rosa", "Jorge", "Carmen",
	"Pedro", "Lucia", "Miguel", "Sofia", "Jose", "Isabel", "Ricardo",
	"Elena", "Fernando", "Patricia", "Roberto", "Teresa", "Alberto", "Laura",
	"Manuel", "Gloria", "Antonio", "Marta", "Francisco", "Diana", "Diego", "Sandra",
}

var apellidos = []string{
	"Garcia", "Rodriguez", "Martinez", "Fernandez", "Lopez", "Gonzalez",
	"Sanchez", "Perez", "Gomez", "Torres", "Ramirez", "Flores", "Rivera",
	"Silva", "Mendoza", "Castro", "Chavez", "Rojas", "Vargas", "Herrera",
	"Morales", "Cruz", "Reyes", "Jimenez", "Diaz", "Romero", "Gutierrez",
	"Ruiz", "Alvarez", "Castillo",
}

var calles = []string{
	"Av. Arequipa", "Av. Brasil", "Jr. Lampa", "Av. Petit Thouars",
	"Av. Javier Prado", "Av. La Marina", "Jr. Carabaya", "Av. Venezuela",
	"Av. Universitaria", "Av. Abancay", "Jr. Union", "Av. Colonial",
	"Av. Angamos", "Av. Salaverry", "Av. Tacna", "Av. Alfonso Ugarte",
}

// RandomDNI returns a DNI uniformly distributed across the range real
// Peruvian DNIs occupy.
func RandomDNI(rng *rand.Rand) uint32 {
	return uint32(10000000 + rng.Intn(99999999-10000000+1))
}

func randomFrom(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

func randomDireccion(rng *rand.Rand) string {
	calle := randomFrom(rng, calles)
	numero := 100 + rng.Intn(9999-100+1)
	return fmt.Sprintf("%s %d", calle, numero)
}

// RandomCitizen synthesizes one citizen record with a random DNI.
func RandomCitizen(rng *rand.Rand) citizen.Citizen {
	return citizen.Citizen{
		DNI:       RandomDNI(rng),
		Nombres:   randomFrom(rng, nombres),
		Apellidos: randomFrom(rng, apellidos) + " " + randomFrom(rng, apellidos),
		Direccion: randomDireccion(rng),
	}
}

// Inserter is the subset of *perudb.Database bulk loading needs.
type Inserter interface {
	Insert(c citizen.Citizen) (bool, error)
}

// Progress reports bulk-load progress every reportEvery records.
type Progress struct {
	Inserted, Failed, Total int
}

// BulkLoad inserts count random citizens into db, retrying a few times
// under a freshly generated DNI whenever one collides with an existing
// record. progress, if non-nil, is called after every reportEvery
// records (and once at the end).
func BulkLoad(db Inserter, rng *rand.Rand, count int, reportEvery int, progress func(Progress)) (inserted, failed int, err error) {
	const maxRetries = 5

	for i := 0; i < count; i++ {
		c := RandomCitizen(rng)
		ok, insertErr := db.Insert(c)
		if insertErr != nil {
			return inserted, failed, fmt.Errorf("generator: bulk load failed at record %d: %w", i, insertErr)
		}

		if ok {
			inserted++
		} else {
			succeeded := false
			for retry := 0; retry < maxRetries; retry++ {
				c.DNI = RandomDNI(rng)
				ok, insertErr := db.Insert(c)
				if insertErr != nil {
					return inserted, failed, fmt.Errorf("generator: bulk load retry failed at record %d: %w", i, insertErr)
				}
				if ok {
					inserted++
					succeeded = true
					break
				}
			}
			if !succeeded {
				failed++
			}
		}

		if progress != nil && reportEvery > 0 && ((i+1)%reportEvery == 0 || i+1 == count) {
			progress(Progress{Inserted: inserted, Failed: failed, Total: count})
		}
	}

	return inserted, failed, nil
}
