// Package slottedpage implements variable-length record storage within a
// single fixed-size page, using a forward-growing slot directory and a
// backward-growing record heap.
package slottedpage

import "encoding/binary"

// SlotID identifies a record slot within a page.
type SlotID = uint16

// InvalidSlotID is the sentinel meaning "no slot".
const InvalidSlotID SlotID = 0xFFFF

const (
	pageSize = 4096

	// Header layout (12 bytes):
	//   byte 0:    page type
	//   byte 1:    level
	//   byte 2-3:  num_cells (vestigial, mirrors record_count)
	//   byte 4-5:  record_count
	//   byte 6-7:  free_start
	//   byte 8-9:  free_end
	//   byte 10-11: flags
	headerSize = 12

	offPageType     = 0
	offLevel        = 1
	offNumCells     = 2
	offRecordCount  = 4
	offFreeStart    = 6
	offFreeEnd      = 8
	offFlags        = 10
	slotSize        = 4 // offset(u16) + size(u16)
)

// Page wraps a single raw 4096-byte page as a slotted page of variable
// length records.
type Page struct {
	data []byte
}

// New wraps data (which must be exactly one page long) as a slotted page.
func New(data []byte) *Page {
	return &Page{data: data}
}

// Init resets the page to an empty slotted page.
func (p *Page) Init() {
	p.setRecordCount(0)
	p.setNumCells(0)
	p.setFreeStart(headerSize)
	p.setFreeEnd(pageSize)
	p.setFlags(0)
}

// RecordCount returns the number of slot entries, including tombstones.
func (p *Page) RecordCount() uint16 {
	return binary.LittleEndian.Uint16(p.data[offRecordCount : offRecordCount+2])
}

func (p *Page) setRecordCount(n uint16) {
	binary.LittleEndian.PutUint16(p.data[offRecordCount:offRecordCount+2], n)
	p.setNumCells(n)
}

func (p *Page) setNumCells(n uint16) {
	binary.LittleEndian.PutUint16(p.data[offNumCells:offNumCells+2], n)
}

func (p *Page) freeStart() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeStart : offFreeStart+2])
}

func (p *Page) setFreeStart(v uint16) {
	binary.LittleEndian.PutUint16(p.data[offFreeStart:offFreeStart+2], v)
}

func (p *Page) freeEnd() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeEnd : offFreeEnd+2])
}

func (p *Page) setFreeEnd(v uint16) {
	binary.LittleEndian.PutUint16(p.data[offFreeEnd:offFreeEnd+2], v)
}

func (p *Page) setFlags(v uint16) {
	binary.LittleEndian.PutUint16(p.data[offFlags:offFlags+2], v)
}

func (p *Page) slotOffset(id SlotID) int {
	return headerSize + int(id)*slotSize
}

func (p *Page) slotFields(id SlotID) (offset, size uint16) {
	off := p.slotOffset(id)
	offset = binary.LittleEndian.Uint16(p.data[off : off+2])
	size = binary.LittleEndian.Uint16(p.data[off+2 : off+4])
	return
}

func (p *Page) setSlotFields(id SlotID, offset, size uint16) {
	off := p.slotOffset(id)
	binary.LittleEndian.PutUint16(p.data[off:off+2], offset)
	binary.LittleEndian.PutUint16(p.data[off+2:off+4], size)
}

// HasSpace reports whether a record (plus its slot entry) of the given
// size would currently fit on the page.
func (p *Page) HasSpace(size int) bool {
	free := int(p.freeEnd()) - int(p.freeStart())
	return free >= slotSize+size
}

// hasHeapSpace reports whether size bytes of record heap remain, without
// requiring room for a new slot directory entry. InsertIntoSlot reuses an
// existing directory entry, so it must not charge slotSize again.
func (p *Page) hasHeapSpace(size int) bool {
	free := int(p.freeEnd()) - int(p.freeStart())
	return free >= size
}

// Insert appends record into a fresh slot at the end of the page, growing
// the slot directory forward and the record heap backward. Returns
// InvalidSlotID if there isn't enough room.
func (p *Page) Insert(record []byte) SlotID {
	if !p.HasSpace(len(record)) {
		return InvalidSlotID
	}

	id := SlotID(p.RecordCount())
	dataOffset := p.freeEnd() - uint16(len(record))
	copy(p.data[dataOffset:dataOffset+uint16(len(record))], record)

	p.setSlotFields(id, dataOffset, uint16(len(record)))
	p.setRecordCount(id + 1)
	p.setFreeStart(p.freeStart() + slotSize)
	p.setFreeEnd(dataOffset)

	return id
}

// InsertIntoSlot reuses a previously tombstoned slot (slot must exist and
// currently have size 0) rather than allocating a new one. This never
// reclaims the original record's heap space.
func (p *Page) InsertIntoSlot(id SlotID, record []byte) bool {
	if id >= SlotID(p.RecordCount()) {
		return false
	}
	if !p.hasHeapSpace(len(record)) {
		return false
	}

	_, size := p.slotFields(id)
	if size != 0 {
		return false
	}

	dataOffset := p.freeEnd() - uint16(len(record))
	copy(p.data[dataOffset:dataOffset+uint16(len(record))], record)

	p.setSlotFields(id, dataOffset, uint16(len(record)))
	p.setFreeEnd(dataOffset)
	return true
}

// Read returns the bytes stored at id, or (nil, false) if the slot is out
// of range or tombstoned.
func (p *Page) Read(id SlotID) ([]byte, bool) {
	if id >= SlotID(p.RecordCount()) {
		return nil, false
	}

	offset, size := p.slotFields(id)
	if size == 0 {
		return nil, false
	}

	return p.data[offset : offset+size], true
}

// Delete tombstones the slot at id by zeroing its offset and size. The
// record's heap bytes are not reclaimed; no compaction is performed.
func (p *Page) Delete(id SlotID) bool {
	if id >= SlotID(p.RecordCount()) {
		return false
	}

	_, size := p.slotFields(id)
	if size == 0 {
		return false
	}

	p.setSlotFields(id, 0, 0)
	return true
}
