package pager

import "container/list"

// pageCache keeps copies of recently used pages. Callers never share memory
// with it: put stores a copy and get hands one out. A capacity of zero or
// less disables it.
type pageCache struct {
	capacity int
	order    *list.List // front is most recent; values are *cachedPage
	byID     map[PageID]*list.Element
}

type cachedPage struct {
	id   PageID
	page Page
}

func newPageCache(capacity int) *pageCache {
	return &pageCache{
		capacity: capacity,
		order:    list.New(),
		byID:     make(map[PageID]*list.Element),
	}
}

func (c *pageCache) len() int {
	return c.order.Len()
}

// get returns a copy of page id and marks it recently used.
func (c *pageCache) get(id PageID) (*Page, bool) {
	el, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	pg := el.Value.(*cachedPage).page
	return &pg, true
}

// put stores a copy of pg as page id, evicting the least recently used page
// when full.
func (c *pageCache) put(id PageID, pg *Page) {
	if c.capacity <= 0 {
		return
	}
	if el, ok := c.byID[id]; ok {
		el.Value.(*cachedPage).page = *pg
		c.order.MoveToFront(el)
		return
	}
	c.byID[id] = c.order.PushFront(&cachedPage{id: id, page: *pg})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byID, oldest.Value.(*cachedPage).id)
	}
}
