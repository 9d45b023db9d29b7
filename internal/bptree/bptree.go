package bptree

import (
	"fmt"

	"github.com/oda/perudb/internal/pager"
)

// BPlusTree is a disk-resident B+Tree of DNI keys to RecordID values,
// backed by a Pager. It keeps no state of its own beyond the current root
// page id: callers (the Database) are responsible for persisting that id
// across reopens.
type BPlusTree struct {
	pager *pager.Pager
	root  pager.PageID
}

// New wraps p as a B+Tree whose root is the given page id. Pass
// pager.InvalidPageID for an empty tree.
func New(p *pager.Pager, root pager.PageID) *BPlusTree {
	return &BPlusTree{pager: p, root: root}
}

// Initialize allocates a fresh, empty root leaf page and returns its id.
// Use this only when creating a brand-new tree.
func (t *BPlusTree) Initialize() (pager.PageID, error) {
	id, err := t.pager.Alloc()
	if err != nil {
		return 0, fmt.Errorf("bptree: failed to allocate root: %w", err)
	}
	newLeafNode(t.pager.Get(id), true)
	t.root = id
	return id, nil
}

// Root returns the current root page id.
func (t *BPlusTree) Root() pager.PageID {
	return t.root
}

// Search looks up key and returns its RecordID.
func (t *BPlusTree) Search(key Key) (RecordID, bool) {
	if t.root == pager.InvalidPageID {
		return RecordID{}, false
	}
	return t.search(t.root, key)
}

func (t *BPlusTree) search(pageID pager.PageID, key Key) (RecordID, bool) {
	data := t.pager.Get(pageID)
	if data == nil {
		return RecordID{}, false
	}

	if getNodeType(data) == NodeTypeLeaf {
		return newLeafNode(data, false).get(key)
	}

	internal := newInternalNode(data, false)
	return t.search(internal.childForKey(key), key)
}

// Insert adds or updates key -> rid. If the root splits, t.Root() reflects
// the new root afterward.
func (t *BPlusTree) Insert(key Key, rid RecordID) error {
	if t.root == pager.InvalidPageID {
		id, err := t.Initialize()
		if err != nil {
			return err
		}
		newLeafNode(t.pager.Get(id), false).put(key, rid)
		return nil
	}

	splitKey, newChildID, err := t.insert(t.root, key, rid)
	if err != nil {
		return err
	}

	if newChildID != pager.InvalidPageID {
		newRootID, err := t.pager.Alloc()
		if err != nil {
			return fmt.Errorf("bptree: failed to allocate new root: %w", err)
		}
		newRoot := newInternalNode(t.pager.Get(newRootID), true)
		newRoot.initRoot(t.root, newChildID, splitKey)
		t.root = newRootID
	}

	return nil
}

// insert recursively inserts into the subtree rooted at pageID. It
// returns (splitKey, newPageID) when the child had to split; newPageID is
// pager.InvalidPageID otherwise.
//
// pageID is threaded through (rather than a data slice) because
// Pager.Alloc may grow and remap the underlying file, invalidating every
// slice obtained before the call. Every node byte slice is re-fetched
// from the pager immediately after any Alloc.
func (t *BPlusTree) insert(pageID pager.PageID, key Key, rid RecordID) (Key, pager.PageID, error) {
	data := t.pager.Get(pageID)
	if data == nil {
		return 0, pager.InvalidPageID, fmt.Errorf("bptree: failed to get page %d", pageID)
	}

	if getNodeType(data) == NodeTypeLeaf {
		return t.insertLeaf(pageID, key, rid)
	}
	return t.insertInternal(pageID, key, rid)
}

func (t *BPlusTree) insertLeaf(pageID pager.PageID, key Key, rid RecordID) (Key, pager.PageID, error) {
	leaf := newLeafNode(t.pager.Get(pageID), false)

	if !leaf.isFull() {
		leaf.put(key, rid)
		return 0, pager.InvalidPageID, nil
	}
	if _, found := leaf.get(key); found {
		leaf.put(key, rid)
		return 0, pager.InvalidPageID, nil
	}

	newPageID, err := t.pager.Alloc()
	if err != nil {
		return 0, pager.InvalidPageID, fmt.Errorf("bptree: failed to allocate page: %w", err)
	}

	// Alloc may have remapped the file; re-fetch before touching the node again.
	leaf = newLeafNode(t.pager.Get(pageID), false)
	newData := t.pager.Get(newPageID)
	splitKey, newLeaf := leaf.split(newData)

	if key < splitKey {
		leaf.put(key, rid)
	} else {
		newLeaf.put(key, rid)
	}

	newLeaf.setNextLeaf(leaf.nextLeaf())
	leaf.setNextLeaf(newPageID)

	return splitKey, newPageID, nil
}

func (t *BPlusTree) insertInternal(pageID pager.PageID, key Key, rid RecordID) (Key, pager.PageID, error) {
	internal := newInternalNode(t.pager.Get(pageID), false)
	childID := internal.childForKey(key)

	splitKey, newChildID, err := t.insert(childID, key, rid)
	if err != nil {
		return 0, pager.InvalidPageID, err
	}
	if newChildID == pager.InvalidPageID {
		return 0, pager.InvalidPageID, nil
	}

	internal = newInternalNode(t.pager.Get(pageID), false)
	if !internal.isFull() {
		internal.insert(splitKey, newChildID)
		return 0, pager.InvalidPageID, nil
	}

	newPageID, err := t.pager.Alloc()
	if err != nil {
		return 0, pager.InvalidPageID, fmt.Errorf("bptree: failed to allocate page: %w", err)
	}

	internal = newInternalNode(t.pager.Get(pageID), false)
	newData := t.pager.Get(newPageID)
	midKey, rightNode := internal.split(newData)

	if splitKey < midKey {
		internal.insert(splitKey, newChildID)
	} else {
		rightNode.insert(splitKey, newChildID)
	}

	return midKey, newPageID, nil
}

// Delete removes key. Returns true if it was present. If an internal root
// is left with a single child, that child becomes the root and t.Root()
// reflects it; a leaf root that becomes empty stays the root.
func (t *BPlusTree) Delete(key Key) bool {
	if t.root == pager.InvalidPageID {
		return false
	}

	deleted, _ := t.deleteRecursive(t.root, key)
	if !deleted {
		return false
	}

	rootData := t.pager.Get(t.root)
	if getNodeType(rootData) == NodeTypeInternal {
		internal := newInternalNode(rootData, false)
		if internal.keyCount() == 0 {
			newRoot := internal.getChild(0)
			t.pager.Free(t.root)
			t.root = newRoot
		}
	}
	// A leaf root with 0 keys stays as an empty leaf page; it is not
	// collapsed or freed. Root collapse only applies to an internal root.

	return true
}

// deleteRecursive deletes key from the subtree rooted at pageID. It
// returns (deleted, underflow) where underflow tells the caller that this
// node now needs rebalancing.
func (t *BPlusTree) deleteRecursive(pageID pager.PageID, key Key) (bool, bool) {
	data := t.pager.Get(pageID)
	if data == nil {
		return false, false
	}

	if getNodeType(data) == NodeTypeLeaf {
		leaf := newLeafNode(data, false)
		deleted := leaf.delete(key)
		return deleted, deleted && leaf.isUnderflow()
	}

	internal := newInternalNode(data, false)
	childIdx := internal.search(key)
	childID := internal.getChild(childIdx)

	deleted, childUnderflow := t.deleteRecursive(childID, key)
	if !deleted {
		return false, false
	}
	if !childUnderflow {
		return true, false
	}

	t.handleUnderflow(internal, childIdx)
	return true, internal.isUnderflow()
}

// handleUnderflow rebalances an underflowing child against exactly one
// sibling: the left sibling if one exists, otherwise the right one. It
// borrows a key from that sibling if possible, or merges with it
// otherwise. It never tries the other sibling once one has been picked.
func (t *BPlusTree) handleUnderflow(parent *internalNode, childIdx int) {
	childID := parent.getChild(childIdx)
	childData := t.pager.Get(childID)
	childType := getNodeType(childData)

	if childIdx > 0 {
		siblingIdx := childIdx - 1
		sibID := parent.getChild(siblingIdx)
		sibData := t.pager.Get(sibID)

		if childType == NodeTypeLeaf {
			sib := newLeafNode(sibData, false)
			child := newLeafNode(childData, false)
			if sib.canLendTo() {
				parent.setKey(siblingIdx, child.borrowFromLeft(sib))
				return
			}
			sib.mergeWith(child)
		} else {
			sib := newInternalNode(sibData, false)
			child := newInternalNode(childData, false)
			parentKey := parent.getKey(siblingIdx)
			if sib.canLendTo() {
				parent.setKey(siblingIdx, child.borrowFromLeft(sib, parentKey))
				return
			}
			sib.mergeWith(child, parentKey)
		}
		parent.deleteKeyAt(siblingIdx)
		t.pager.Free(childID)
		return
	}

	siblingIdx := childIdx
	sibID := parent.getChild(childIdx + 1)
	sibData := t.pager.Get(sibID)

	if childType == NodeTypeLeaf {
		sib := newLeafNode(sibData, false)
		child := newLeafNode(childData, false)
		if sib.canLendTo() {
			parent.setKey(siblingIdx, child.borrowFromRight(sib))
			return
		}
		child.mergeWith(sib)
	} else {
		sib := newInternalNode(sibData, false)
		child := newInternalNode(childData, false)
		parentKey := parent.getKey(siblingIdx)
		if sib.canLendTo() {
			parent.setKey(siblingIdx, child.borrowFromRight(sib, parentKey))
			return
		}
		child.mergeWith(sib, parentKey)
	}
	parent.deleteKeyAt(siblingIdx)
	t.pager.Free(sibID)
}
