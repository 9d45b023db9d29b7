// Package bptree implements a disk-resident B+Tree over 32-bit DNI keys,
// mapping each key to a RecordID (the page and slot holding its record).
package bptree

import (
	"encoding/binary"

	"github.com/oda/perudb/internal/pager"
	"github.com/oda/perudb/internal/slottedpage"
)

// Key is the indexed citizen DNI.
type Key = uint32

// RecordID locates a record within the slotted-page store.
type RecordID struct {
	PageID pager.PageID
	SlotID slottedpage.SlotID
}

// recordIDSize is the serialized size of a RecordID: PageID(4) + SlotID(2).
const recordIDSize = 6

func getRecordID(data []byte) RecordID {
	return RecordID{
		PageID: binary.LittleEndian.Uint32(data[0:4]),
		SlotID: binary.LittleEndian.Uint16(data[4:6]),
	}
}

func putRecordID(data []byte, rid RecordID) {
	binary.LittleEndian.PutUint32(data[0:4], rid.PageID)
	binary.LittleEndian.PutUint16(data[4:6], rid.SlotID)
}

// NodeType distinguishes leaf pages from internal (branch) pages.
type NodeType uint8

const (
	// NodeTypeInternal marks a branch node holding separator keys and
	// child page pointers.
	NodeTypeInternal NodeType = 0
	// NodeTypeLeaf marks a leaf node holding key/RecordID entries.
	NodeTypeLeaf NodeType = 1
)

const (
	// headerSize is the common 3-byte B+Tree node header: node type (1
	// byte) and key count (2 bytes). Leaf nodes add a 4-byte next_leaf
	// pointer immediately after.
	headerSize = 3

	leafHeaderSize = headerSize + 4 // + next_leaf PageID

	keyEntrySize = 4 // uint32 DNI

	leafEntrySize = keyEntrySize + recordIDSize // 10 bytes

	childEntrySize = 4 // PageID

	// MaxLeafKeys is the maximum number of entries a leaf page can hold:
	// (4096 - leafHeaderSize) / leafEntrySize.
	MaxLeafKeys = (pager.PageSize - leafHeaderSize) / leafEntrySize

	// MinLeafKeys is the minimum a non-root leaf must retain.
	MinLeafKeys = MaxLeafKeys / 2

	// internalOrder is the number of children an internal node can hold:
	// (N children * childEntrySize) + (N-1 keys * keyEntrySize) must fit
	// in the space after the header, which simplifies to
	// N <= (pageSize - headerSize) / (childEntrySize + keyEntrySize)
	// (the -1 key is covered by rounding down).
	internalOrder = (pager.PageSize - headerSize) / (childEntrySize + keyEntrySize)

	// MaxInternalKeys is the maximum number of separator keys an
	// internal node can hold: one fewer than its number of children.
	MaxInternalKeys = internalOrder - 1

	// MinInternalKeys is the minimum a non-root internal node must retain.
	MinInternalKeys = MaxInternalKeys / 2
)

func getNodeType(data []byte) NodeType {
	return NodeType(data[0])
}

func getKeyCount(data []byte) uint16 {
	return binary.LittleEndian.Uint16(data[1:3])
}

func setKeyCount(data []byte, count uint16) {
	binary.LittleEndian.PutUint16(data[1:3], count)
}
