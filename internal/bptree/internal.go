package bptree

import (
	"encoding/binary"
	"sort"

	"github.com/oda/perudb/internal/pager"
)

// internalNode wraps a raw page as a B+Tree branch node: N separator keys
// and N+1 child page pointers.
type internalNode struct {
	data []byte
}

func newInternalNode(data []byte, init bool) *internalNode {
	n := &internalNode{data: data}
	if init {
		data[0] = byte(NodeTypeInternal)
		setKeyCount(data, 0)
	}
	return n
}

func (n *internalNode) keyCount() int {
	return int(getKeyCount(n.data))
}

func (n *internalNode) isFull() bool {
	return n.keyCount() >= MaxInternalKeys
}

func (n *internalNode) isUnderflow() bool {
	return n.keyCount() < MinInternalKeys
}

func (n *internalNode) canLendTo() bool {
	return n.keyCount() > MinInternalKeys
}

func (n *internalNode) childOffset(i int) int {
	return headerSize + i*childEntrySize
}

func (n *internalNode) keyOffset(i int) int {
	return headerSize + (MaxInternalKeys+1)*childEntrySize + i*keyEntrySize
}

func (n *internalNode) getChild(i int) pager.PageID {
	off := n.childOffset(i)
	return binary.LittleEndian.Uint32(n.data[off : off+4])
}

func (n *internalNode) setChild(i int, id pager.PageID) {
	off := n.childOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], id)
}

func (n *internalNode) getKey(i int) Key {
	off := n.keyOffset(i)
	return binary.LittleEndian.Uint32(n.data[off : off+4])
}

func (n *internalNode) setKey(i int, key Key) {
	off := n.keyOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], key)
}

// search returns the index of the first key strictly greater than key;
// that index is the child pointer to follow.
func (n *internalNode) search(key Key) int {
	count := n.keyCount()
	return sort.Search(count, func(i int) bool {
		return n.getKey(i) > key
	})
}

func (n *internalNode) childForKey(key Key) pager.PageID {
	return n.getChild(n.search(key))
}

// insert adds key with its right child pointer; the left child must
// already be in place. Returns false if the node has no room.
func (n *internalNode) insert(key Key, rightChild pager.PageID) bool {
	count := n.keyCount()
	if count >= MaxInternalKeys {
		return false
	}

	idx := n.search(key)
	for i := count; i > idx; i-- {
		n.setKey(i, n.getKey(i-1))
		n.setChild(i+1, n.getChild(i))
	}

	n.setKey(idx, key)
	n.setChild(idx+1, rightChild)
	setKeyCount(n.data, uint16(count+1))
	return true
}

// initRoot initializes n as a fresh root with a single separator key.
func (n *internalNode) initRoot(left, right pager.PageID, key Key) {
	n.data[0] = byte(NodeTypeInternal)
	setKeyCount(n.data, 1)
	n.setChild(0, left)
	n.setChild(1, right)
	n.setKey(0, key)
}

// split moves the upper half of n's keys and children into newData. The
// middle key is promoted to the parent and is not duplicated in either
// half.
func (n *internalNode) split(newData []byte) (Key, *internalNode) {
	count := n.keyCount()
	mid := count / 2

	newNode := newInternalNode(newData, true)
	midKey := n.getKey(mid)

	newKeyCount := count - mid - 1
	for i := 0; i < newKeyCount; i++ {
		newNode.setKey(i, n.getKey(mid+1+i))
	}
	for i := 0; i <= newKeyCount; i++ {
		newNode.setChild(i, n.getChild(mid+1+i))
	}
	setKeyCount(newData, uint16(newKeyCount))
	setKeyCount(n.data, uint16(mid))

	return midKey, newNode
}

func (n *internalNode) deleteKeyAt(idx int) {
	count := n.keyCount()
	for i := idx; i < count-1; i++ {
		n.setKey(i, n.getKey(i+1))
		n.setChild(i+1, n.getChild(i+2))
	}
	setKeyCount(n.data, uint16(count-1))
}

// borrowFromRight pulls the right sibling's first key/child across the
// shared parent separator and returns the new separator.
func (n *internalNode) borrowFromRight(right *internalNode, parentKey Key) Key {
	count := n.keyCount()

	n.setKey(count, parentKey)
	n.setChild(count+1, right.getChild(0))
	setKeyCount(n.data, uint16(count+1))

	newParentKey := right.getKey(0)

	rightCount := right.keyCount()
	for i := 0; i < rightCount-1; i++ {
		right.setKey(i, right.getKey(i+1))
	}
	for i := 0; i < rightCount; i++ {
		right.setChild(i, right.getChild(i+1))
	}
	setKeyCount(right.data, uint16(rightCount-1))

	return newParentKey
}

// borrowFromLeft pulls the left sibling's last key/child across the
// shared parent separator and returns the new separator.
func (n *internalNode) borrowFromLeft(left *internalNode, parentKey Key) Key {
	count := n.keyCount()
	leftCount := left.keyCount()

	for i := count; i > 0; i-- {
		n.setKey(i, n.getKey(i-1))
	}
	for i := count + 1; i > 0; i-- {
		n.setChild(i, n.getChild(i-1))
	}

	n.setKey(0, parentKey)
	n.setChild(0, left.getChild(leftCount))
	setKeyCount(n.data, uint16(count+1))

	newParentKey := left.getKey(leftCount - 1)
	setKeyCount(left.data, uint16(leftCount-1))

	return newParentKey
}

// mergeWith absorbs right's keys and children into n, reinserting
// parentKey as the separator between the two halves. The caller is
// responsible for freeing right's page afterward.
func (n *internalNode) mergeWith(right *internalNode, parentKey Key) {
	count := n.keyCount()
	rightCount := right.keyCount()

	n.setKey(count, parentKey)
	for i := 0; i < rightCount; i++ {
		n.setKey(count+1+i, right.getKey(i))
	}
	for i := 0; i <= rightCount; i++ {
		n.setChild(count+1+i, right.getChild(i))
	}

	setKeyCount(n.data, uint16(count+1+rightCount))
}
