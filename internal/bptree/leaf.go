package bptree

import (
	"encoding/binary"
	"sort"

	"github.com/oda/perudb/internal/pager"
)

// leafNode wraps a raw page as a B+Tree leaf: a sorted array of
// (Key, RecordID) entries plus a pointer to the next leaf in key order.
type leafNode struct {
	data []byte
}

func newLeafNode(data []byte, init bool) *leafNode {
	n := &leafNode{data: data}
	if init {
		data[0] = byte(NodeTypeLeaf)
		setKeyCount(data, 0)
		n.setNextLeaf(pager.InvalidPageID)
	}
	return n
}

func (n *leafNode) keyCount() int {
	return int(getKeyCount(n.data))
}

func (n *leafNode) isFull() bool {
	return n.keyCount() >= MaxLeafKeys
}

func (n *leafNode) isUnderflow() bool {
	return n.keyCount() < MinLeafKeys
}

func (n *leafNode) canLendTo() bool {
	return n.keyCount() > MinLeafKeys
}

func (n *leafNode) nextLeaf() pager.PageID {
	return binary.LittleEndian.Uint32(n.data[headerSize : headerSize+4])
}

func (n *leafNode) setNextLeaf(id pager.PageID) {
	binary.LittleEndian.PutUint32(n.data[headerSize:headerSize+4], id)
}

func (n *leafNode) entryOffset(i int) int {
	return leafHeaderSize + i*leafEntrySize
}

func (n *leafNode) getKey(i int) Key {
	off := n.entryOffset(i)
	return binary.LittleEndian.Uint32(n.data[off : off+4])
}

func (n *leafNode) setKey(i int, key Key) {
	off := n.entryOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], key)
}

func (n *leafNode) getValue(i int) RecordID {
	off := n.entryOffset(i) + keyEntrySize
	return getRecordID(n.data[off : off+recordIDSize])
}

func (n *leafNode) setValue(i int, rid RecordID) {
	off := n.entryOffset(i) + keyEntrySize
	putRecordID(n.data[off:off+recordIDSize], rid)
}

// search returns the index of key, or where it would be inserted, and
// whether it was found.
func (n *leafNode) search(key Key) (int, bool) {
	count := n.keyCount()
	idx := sort.Search(count, func(i int) bool {
		return n.getKey(i) >= key
	})
	if idx < count && n.getKey(idx) == key {
		return idx, true
	}
	return idx, false
}

func (n *leafNode) get(key Key) (RecordID, bool) {
	idx, found := n.search(key)
	if !found {
		return RecordID{}, false
	}
	return n.getValue(idx), true
}

// put inserts or updates key. Returns true if a new key was inserted.
// Panics if the node is full and key is new; callers must split first.
func (n *leafNode) put(key Key, rid RecordID) bool {
	idx, found := n.search(key)
	if found {
		n.setValue(idx, rid)
		return false
	}

	count := n.keyCount()
	if count >= MaxLeafKeys {
		panic("bptree: leaf node is full")
	}

	for i := count; i > idx; i-- {
		n.setKey(i, n.getKey(i-1))
		n.setValue(i, n.getValue(i-1))
	}

	n.setKey(idx, key)
	n.setValue(idx, rid)
	setKeyCount(n.data, uint16(count+1))
	return true
}

func (n *leafNode) delete(key Key) bool {
	idx, found := n.search(key)
	if !found {
		return false
	}

	count := n.keyCount()
	for i := idx; i < count-1; i++ {
		n.setKey(i, n.getKey(i+1))
		n.setValue(i, n.getValue(i+1))
	}
	setKeyCount(n.data, uint16(count-1))
	return true
}

// split moves the upper half of this node's entries into newData, copies
// this node's next_leaf pointer into the new node, and returns the first
// key of the new (right) node to use as the parent's separator. It does
// not point this node at the new one; the caller sets that link, since
// only the caller knows the new page id.
func (n *leafNode) split(newData []byte) (Key, *leafNode) {
	count := n.keyCount()
	mid := count / 2

	newNode := newLeafNode(newData, true)
	for i := mid; i < count; i++ {
		newNode.setKey(i-mid, n.getKey(i))
		newNode.setValue(i-mid, n.getValue(i))
	}
	setKeyCount(newData, uint16(count-mid))
	setKeyCount(n.data, uint16(mid))

	newNode.setNextLeaf(n.nextLeaf())

	return newNode.getKey(0), newNode
}

func (n *leafNode) borrowFromRight(right *leafNode) Key {
	key := right.getKey(0)
	value := right.getValue(0)

	count := n.keyCount()
	n.setKey(count, key)
	n.setValue(count, value)
	setKeyCount(n.data, uint16(count+1))

	right.delete(key)

	return right.getKey(0)
}

func (n *leafNode) borrowFromLeft(left *leafNode) Key {
	leftCount := left.keyCount()
	key := left.getKey(leftCount - 1)
	value := left.getValue(leftCount - 1)

	count := n.keyCount()
	for i := count; i > 0; i-- {
		n.setKey(i, n.getKey(i-1))
		n.setValue(i, n.getValue(i-1))
	}
	n.setKey(0, key)
	n.setValue(0, value)
	setKeyCount(n.data, uint16(count+1))

	setKeyCount(left.data, uint16(leftCount-1))

	return n.getKey(0)
}

// mergeWith absorbs right's entries into n. The caller is responsible for
// freeing right's page afterward.
func (n *leafNode) mergeWith(right *leafNode) {
	count := n.keyCount()
	rightCount := right.keyCount()

	for i := 0; i < rightCount; i++ {
		n.setKey(count+i, right.getKey(i))
		n.setValue(count+i, right.getValue(i))
	}
	setKeyCount(n.data, uint16(count+rightCount))
	n.setNextLeaf(right.nextLeaf())
}
