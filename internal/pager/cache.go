package pager

import "container/list"

// pageCache holds decrypted page images in memory with LRU eviction.
// Dirty pages are never evicted; they stay resident until the transaction
// that dirtied them commits or rolls back.
type pageCache struct {
	maxPages int
	pages    map[PageID]*page
	order    *list.List // front = most recently used
	elems    map[PageID]*list.Element
}

func newPageCache(maxPages int) *pageCache {
	return &pageCache{
		maxPages: maxPages,
		pages:    make(map[PageID]*page),
		order:    list.New(),
		elems:    make(map[PageID]*list.Element),
	}
}

// get returns the cached page and marks it recently used.
func (c *pageCache) get(id PageID) (*page, bool) {
	p, ok := c.pages[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(c.elems[id])
	return p, true
}

// put inserts a page, evicting the least recently used clean page if the
// cache is full. Eviction may fail to free a slot when every resident page
// is dirty; the cache then grows past maxPages rather than lose writes.
func (c *pageCache) put(p *page) {
	if old, ok := c.pages[p.id]; ok {
		old.data = p.data
		old.dirty = p.dirty
		c.order.MoveToFront(c.elems[p.id])
		return
	}

	if c.order.Len() >= c.maxPages {
		c.evictOne()
	}

	c.pages[p.id] = p
	c.elems[p.id] = c.order.PushFront(p.id)
}

// evictOne drops the least recently used clean page, if any.
func (c *pageCache) evictOne() {
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		id := elem.Value.(PageID)
		if c.pages[id].dirty {
			continue
		}
		c.order.Remove(elem)
		delete(c.elems, id)
		delete(c.pages, id)
		return
	}
}

// remove drops a page from the cache regardless of its dirty state.
func (c *pageCache) remove(id PageID) {
	if elem, ok := c.elems[id]; ok {
		c.order.Remove(elem)
		delete(c.elems, id)
		delete(c.pages, id)
	}
}

// dirtyPages returns all dirty pages. Order is not guaranteed; callers
// sort if they need determinism.
func (c *pageCache) dirtyPages() []*page {
	var out []*page
	for _, p := range c.pages {
		if p.dirty {
			out = append(out, p)
		}
	}
	return out
}

// clear drops every cached page.
func (c *pageCache) clear() {
	c.pages = make(map[PageID]*page)
	c.elems = make(map[PageID]*list.Element)
	c.order.Init()
}

func (c *pageCache) len() int {
	return c.order.Len()
}
