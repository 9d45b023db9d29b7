// Command perudb operates a citizen-records store backed by a single
// memory-mapped file, one subcommand per operation.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/oda/perudb"
	"github.com/oda/perudb/internal/generator"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "insert":
		runInsert(args)
	case "find":
		runFind(args)
	case "update":
		runUpdate(args)
	case "delete":
		runDelete(args)
	case "bulkload":
		runBulkLoad(args)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "perudb: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: perudb <command> [flags]

commands:
  insert   -db FILE -dni N -nombres S -apellidos S -direccion S
  find     -db FILE -dni N
  update   -db FILE -dni N -nombres S -apellidos S -direccion S
  delete   -db FILE -dni N
  bulkload -db FILE -count N`)
}

func openDB(path string) *perudb.Database {
	db, err := perudb.Open(path)
	if err != nil {
		log.Fatalf("perudb: failed to open %s: %v", path, err)
	}
	return db
}

func runInsert(args []string) {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	dbPath := fs.String("db", "perudb.db", "path to the database file")
	dni := fs.Uint("dni", 0, "citizen DNI")
	nombres := fs.String("nombres", "", "given names")
	apellidos := fs.String("apellidos", "", "surnames")
	direccion := fs.String("direccion", "", "address")
	fs.Parse(args)

	db := openDB(*dbPath)
	defer closeDB(db)

	c := perudb.Citizen{DNI: uint32(*dni), Nombres: *nombres, Apellidos: *apellidos, Direccion: *direccion}
	ok, err := db.Insert(c)
	if err != nil {
		log.Fatalf("perudb: insert failed: %v", err)
	}
	if !ok {
		fmt.Printf("rejected: a citizen with DNI %d already exists\n", c.DNI)
		os.Exit(1)
	}
	fmt.Printf("inserted DNI %d\n", c.DNI)
}

func runFind(args []string) {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	dbPath := fs.String("db", "perudb.db", "path to the database file")
	dni := fs.Uint("dni", 0, "citizen DNI")
	fs.Parse(args)

	db := openDB(*dbPath)
	defer closeDB(db)

	c, found, err := db.Find(uint32(*dni))
	if err != nil {
		log.Fatalf("perudb: find failed: %v", err)
	}
	if !found {
		fmt.Printf("not found: DNI %d\n", *dni)
		os.Exit(1)
	}
	fmt.Printf("DNI: %d\nNombres: %s\nApellidos: %s\nDireccion: %s\n", c.DNI, c.Nombres, c.Apellidos, c.Direccion)
}

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	dbPath := fs.String("db", "perudb.db", "path to the database file")
	dni := fs.Uint("dni", 0, "citizen DNI")
	nombres := fs.String("nombres", "", "given names")
	apellidos := fs.String("apellidos", "", "surnames")
	direccion := fs.String("direccion", "", "address")
	fs.Parse(args)

	db := openDB(*dbPath)
	defer closeDB(db)

	c := perudb.Citizen{DNI: uint32(*dni), Nombres: *nombres, Apellidos: *apellidos, Direccion: *direccion}
	ok, err := db.Update(c)
	if err != nil {
		log.Fatalf("perudb: update failed: %v", err)
	}
	if !ok {
		fmt.Printf("rejected: DNI %d does not exist, or the new record is larger than the stored one\n", c.DNI)
		os.Exit(1)
	}
	fmt.Printf("updated DNI %d\n", c.DNI)
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dbPath := fs.String("db", "perudb.db", "path to the database file")
	dni := fs.Uint("dni", 0, "citizen DNI")
	fs.Parse(args)

	db := openDB(*dbPath)
	defer closeDB(db)

	ok, err := db.Delete(uint32(*dni))
	if err != nil {
		log.Fatalf("perudb: delete failed: %v", err)
	}
	if !ok {
		fmt.Printf("not found: DNI %d\n", *dni)
		os.Exit(1)
	}
	fmt.Printf("deleted DNI %d\n", *dni)
}

func runBulkLoad(args []string) {
	fs := flag.NewFlagSet("bulkload", flag.ExitOnError)
	dbPath := fs.String("db", "perudb.db", "path to the database file")
	count := fs.Int("count", 1000, "number of random citizens to insert")
	reportEvery := fs.Int("report-every", 10000, "log progress every N records")
	fs.Parse(args)

	db := openDB(*dbPath)
	defer closeDB(db)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()

	inserted, failed, err := generator.BulkLoad(db, rng, *count, *reportEvery, func(p generator.Progress) {
		log.Printf("progress: inserted=%d failed=%d total=%d", p.Inserted, p.Failed, p.Total)
	})
	if err != nil {
		log.Fatalf("perudb: bulk load failed: %v", err)
	}

	fmt.Printf("inserted=%d failed=%d elapsed=%s\n", inserted, failed, time.Since(start).Round(time.Millisecond))
}

func closeDB(db *perudb.Database) {
	if err := db.Close(); err != nil {
		log.Printf("perudb: error closing database: %v", err)
	}
}
