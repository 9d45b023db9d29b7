// Package perudb implements an embedded single-file record store keyed by
// a citizen's DNI, layered on a slotted-page heap and a disk-resident
// B+Tree index.
package perudb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/oda/perudb/internal/bptree"
	"github.com/oda/perudb/internal/citizen"
	"github.com/oda/perudb/internal/pager"
	"github.com/oda/perudb/internal/slottedpage"
)

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Citizen is the record type stored and retrieved by DNI.
type Citizen = citizen.Citizen

const (
	// superblockPageID is the fixed page holding the database's
	// bookkeeping fields. The pager never hands this page out via Alloc
	// because it is already counted among the file's initial pages.
	superblockPageID pager.PageID = 0

	// initialPages is how many pages a freshly created database
	// reserves up front.
	initialPages = 10
)

// Database is an open handle to a single perudb file.
type Database struct {
	pager        *pager.Pager
	index        *bptree.BPlusTree
	lastDataPage pager.PageID
}

// Open opens path, creating a new database file if it does not already
// exist.
func Open(path string) (*Database, error) {
	exists, err := fileExists(path)
	if err != nil {
		return nil, fmt.Errorf("perudb: failed to stat %s: %w", path, err)
	}

	if exists {
		return openExisting(path)
	}
	return createNew(path)
}

func createNew(path string) (*Database, error) {
	p, err := pager.Open(path, initialPages)
	if err != nil {
		return nil, fmt.Errorf("perudb: failed to create database: %w", err)
	}

	index := bptree.New(p, pager.InvalidPageID)
	if _, err := index.Initialize(); err != nil {
		p.Close()
		return nil, fmt.Errorf("perudb: failed to initialize index: %w", err)
	}

	db := &Database{
		pager:        p,
		index:        index,
		lastDataPage: pager.InvalidPageID,
	}
	db.writeSuperblock()

	return db, nil
}

func openExisting(path string) (*Database, error) {
	p, err := pager.Open(path, 0)
	if err != nil {
		return nil, fmt.Errorf("perudb: failed to open database: %w", err)
	}

	rootPage, lastDataPage := readSuperblock(p)

	db := &Database{
		pager:        p,
		index:        bptree.New(p, rootPage),
		lastDataPage: lastDataPage,
	}
	return db, nil
}

func readSuperblock(p *pager.Pager) (rootPage, lastDataPage pager.PageID) {
	data := p.Get(superblockPageID)
	rootPage = binary.LittleEndian.Uint32(data[0:4])
	lastDataPage = binary.LittleEndian.Uint32(data[4:8])
	return
}

func (db *Database) writeSuperblock() {
	data := db.pager.Get(superblockPageID)
	binary.LittleEndian.PutUint32(data[0:4], db.index.Root())
	binary.LittleEndian.PutUint32(data[4:8], db.lastDataPage)
}

// Close flushes the superblock and closes the underlying file.
func (db *Database) Close() error {
	db.writeSuperblock()
	if err := db.pager.Sync(); err != nil {
		return fmt.Errorf("perudb: failed to sync on close: %w", err)
	}
	return db.pager.Close()
}

// Insert adds c. Returns false if a citizen with the same DNI already
// exists; that is a rejection, not an error.
func (db *Database) Insert(c Citizen) (bool, error) {
	if _, found := db.index.Search(c.DNI); found {
		return false, nil
	}

	record := make([]byte, c.SerializedSize())
	c.Serialize(record)

	dataPageID, err := db.dataPageWithSpace(len(record))
	if err != nil {
		return false, err
	}

	page := slottedpage.New(db.pager.Get(dataPageID))
	slotID := page.Insert(record)
	if slotID == slottedpage.InvalidSlotID {
		return false, fmt.Errorf("perudb: record of %d bytes does not fit on a fresh page", len(record))
	}

	rid := bptree.RecordID{PageID: dataPageID, SlotID: slotID}
	if err := db.index.Insert(c.DNI, rid); err != nil {
		return false, fmt.Errorf("perudb: failed to insert into index: %w", err)
	}
	db.writeSuperblock()

	return true, nil
}

// dataPageWithSpace returns a data page with room for size bytes,
// preferring the last page written to before allocating a fresh one.
func (db *Database) dataPageWithSpace(size int) (pager.PageID, error) {
	if db.lastDataPage != pager.InvalidPageID {
		page := slottedpage.New(db.pager.Get(db.lastDataPage))
		if page.HasSpace(size) {
			return db.lastDataPage, nil
		}
	}

	id, err := db.pager.Alloc()
	if err != nil {
		return 0, fmt.Errorf("perudb: out of pages: %w", err)
	}
	page := slottedpage.New(db.pager.Get(id))
	page.Init()
	db.lastDataPage = id

	return id, nil
}

// Find looks up dni. Returns false if no citizen with that DNI exists.
func (db *Database) Find(dni uint32) (Citizen, bool, error) {
	rid, found := db.index.Search(dni)
	if !found {
		return Citizen{}, false, nil
	}

	page := slottedpage.New(db.pager.Get(rid.PageID))
	record, ok := page.Read(rid.SlotID)
	if !ok {
		return Citizen{}, false, nil
	}

	c, err := citizen.Deserialize(record)
	if err != nil {
		return Citizen{}, false, fmt.Errorf("perudb: corrupt record for dni %d: %w", dni, err)
	}
	return c, true, nil
}

// Update replaces the stored record for c.DNI in place. Returns false if
// the citizen does not exist, or if the new serialized record is larger
// than the slot it would replace — growing a record in place is not
// supported; re-insert under a fresh DNI instead.
func (db *Database) Update(c Citizen) (bool, error) {
	rid, found := db.index.Search(c.DNI)
	if !found {
		return false, nil
	}

	page := slottedpage.New(db.pager.Get(rid.PageID))
	oldRecord, ok := page.Read(rid.SlotID)
	if !ok {
		return false, nil
	}

	newRecord := make([]byte, c.SerializedSize())
	c.Serialize(newRecord)

	if len(newRecord) > len(oldRecord) {
		return false, nil
	}

	if !page.Delete(rid.SlotID) {
		return false, nil
	}
	if !page.InsertIntoSlot(rid.SlotID, newRecord) {
		return false, fmt.Errorf("perudb: failed to rewrite slot for dni %d", c.DNI)
	}

	return true, nil
}

// Delete removes the citizen with the given dni. Returns false if it does
// not exist.
func (db *Database) Delete(dni uint32) (bool, error) {
	rid, found := db.index.Search(dni)
	if !found {
		return false, nil
	}

	page := slottedpage.New(db.pager.Get(rid.PageID))
	if !page.Delete(rid.SlotID) {
		return false, nil
	}

	if !db.index.Delete(dni) {
		return false, fmt.Errorf("perudb: index and heap disagree about dni %d", dni)
	}
	db.writeSuperblock()

	return true, nil
}
