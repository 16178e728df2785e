package ui

import (
	"container/list"
	"sync"

	"gopanel/app"
)

// reportCache keeps the most recent reports. When full, the oldest
// inserted report is evicted; reads do not refresh an entry.
type reportCache struct {
	mu       sync.RWMutex
	capacity int
	order    *list.List // run IDs, oldest at the front
	items    map[string]*app.AnalysisReport
}

func newReportCache(capacity int) *reportCache {
	if capacity < 1 {
		capacity = 1
	}
	return &reportCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*app.AnalysisReport),
	}
}

func (c *reportCache) Put(report *app.AnalysisReport) {
	id := report.RunID.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; ok {
		c.items[id] = report
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(string))
	}
	c.order.PushBack(id)
	c.items[id] = report
}

func (c *reportCache) Get(id string) (*app.AnalysisReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.items[id]
	return r, ok
}

func (c *reportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
