package pager

import (
	"container/heap"
	"container/list"
	"fmt"

	"github.com/oda/perudb/internal/filemap"
)

// Pager manages page-based I/O over a single memory-mapped file.
//
// The pager only tracks pages: it has no notion of a root page or any
// other tree-level metadata. Page 0 is reserved by the caller (the
// Database superblock lives there); the pager never allocates it.
type Pager struct {
	fm       *filemap.FileMap
	numPages uint32
	free     *freePageSet
	cache    *pageCache
}

// Open opens or creates path, ensuring at least initialPages pages exist.
// If the file already holds more pages than initialPages, the larger count
// from the actual file size wins.
func Open(path string, initialPages uint32) (*Pager, error) {
	fm, err := filemap.Open(path, int64(initialPages)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open filemap: %w", err)
	}

	numPages := uint32(fm.Size() / PageSize)

	return &Pager{
		fm:       fm,
		numPages: numPages,
		free:     newFreePageSet(),
		cache:    newPageCache(cacheCapacity),
	}, nil
}

// Close closes the pager and its underlying file.
func (p *Pager) Close() error {
	return p.fm.Close()
}

// Sync flushes pending writes to disk.
func (p *Pager) Sync() error {
	return p.fm.Sync()
}

// NumPages returns the number of pages currently backed by the file.
// This count is recomputed from the file size on every Open; it is not
// itself persisted, matching the free-page set (see Alloc).
func (p *Pager) NumPages() uint32 {
	return p.numPages
}

// Get returns the byte slice for page id, or nil if id is out of range.
// The returned slice is invalidated by the next call to Alloc that
// triggers a resize; callers must not hold it across such a call.
func (p *Pager) Get(id PageID) []byte {
	if id >= p.numPages || id == InvalidPageID {
		return nil
	}

	if cached := p.cache.get(id); cached != nil {
		return cached
	}

	offset := int64(id) * PageSize
	page := p.fm.Slice(offset, PageSize)
	if page == nil {
		return nil
	}

	p.cache.put(id, page)
	return page
}

// Alloc reserves a page, preferring the smallest previously freed page id,
// and returns it zeroed. If no freed page is available, the file is grown
// if necessary.
//
// The free-page set is not persisted to disk: pages freed in a session
// that is closed without recording them elsewhere are leaked on reopen.
func (p *Pager) Alloc() (PageID, error) {
	if id, ok := p.free.popMin(); ok {
		data := p.Get(id)
		for i := range data {
			data[i] = 0
		}
		return id, nil
	}

	if p.numPages >= InvalidPageID {
		return 0, fmt.Errorf("pager: out of page ids")
	}

	// +1 so the byte range [numPages*PageSize, (numPages+1)*PageSize) is
	// fully contained by the mapping.
	required := int64(p.numPages+1) * PageSize
	if p.fm.Size() < required {
		newSize := p.fm.Size() * growthFactor
		for newSize < required {
			newSize *= growthFactor
		}
		if err := p.fm.Resize(newSize); err != nil {
			return 0, fmt.Errorf("pager: failed to grow file: %w", err)
		}
		// The remap invalidated every previously cached page pointer.
		p.cache.clear()
	}

	id := p.numPages
	p.numPages++

	data := p.Get(id)
	for i := range data {
		data[i] = 0
	}
	return id, nil
}

// Free marks a page as reusable. The page's contents are left untouched
// until it is handed out again by Alloc.
func (p *Pager) Free(id PageID) {
	if id >= p.numPages || id == InvalidPageID {
		return
	}
	p.free.insert(id)
	p.cache.remove(id)
}

// pageCache is a capacity-bounded LRU cache of page-id to page-data
// mappings, backed by a doubly linked list plus a lookup map.
type pageCache struct {
	capacity int
	order    *list.List
	entries  map[PageID]*list.Element
}

type cacheEntry struct {
	id   PageID
	data []byte
}

func newPageCache(capacity int) *pageCache {
	return &pageCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[PageID]*list.Element, capacity),
	}
}

func (c *pageCache) get(id PageID) []byte {
	el, ok := c.entries[id]
	if !ok {
		return nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).data
}

func (c *pageCache) put(id PageID, data []byte) {
	if el, ok := c.entries[id]; ok {
		el.Value.(*cacheEntry).data = data
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.entries, oldest.Value.(*cacheEntry).id)
			c.order.Remove(oldest)
		}
	}

	el := c.order.PushFront(&cacheEntry{id: id, data: data})
	c.entries[id] = el
}

func (c *pageCache) remove(id PageID) {
	if el, ok := c.entries[id]; ok {
		c.order.Remove(el)
		delete(c.entries, id)
	}
}

func (c *pageCache) clear() {
	c.order.Init()
	c.entries = make(map[PageID]*list.Element, c.capacity)
}

// freePageSet is an ordered set of reusable page ids, smallest first, so
// that allocation is deterministic across runs.
type freePageSet struct {
	members map[PageID]struct{}
	heap    idHeap
}

func newFreePageSet() *freePageSet {
	return &freePageSet{members: make(map[PageID]struct{})}
}

func (s *freePageSet) insert(id PageID) {
	if _, exists := s.members[id]; exists {
		return
	}
	s.members[id] = struct{}{}
	heap.Push(&s.heap, id)
}

func (s *freePageSet) popMin() (PageID, bool) {
	for s.heap.Len() > 0 {
		id := heap.Pop(&s.heap).(PageID)
		if _, exists := s.members[id]; exists {
			delete(s.members, id)
			return id, true
		}
		// A heap entry with no matching member is skipped. insert and
		// popMin keep the heap and members in step, so none arises today.
	}
	return 0, false
}

// idHeap is a min-heap of page ids used by freePageSet.
type idHeap []PageID

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(PageID)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	id := old[n-1]
	*h = old[:n-1]
	return id
}
