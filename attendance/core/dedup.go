package core

import (
	"sync"

	"axiapac.com/attendance/attendance/model"
)

const DefaultDedupCapacity = 10000

// Deduplicator remembers (eventId, keyword) pairs seen by this process.
// Once more than capacity keys are tracked, the oldest are dropped in bulk
// so that the newest capacity/2 remain. Nothing survives a restart.
type Deduplicator struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

func NewDeduplicator(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Deduplicator{
		capacity: capacity,
		seen:     make(map[string]struct{}),
	}
}

func dedupKey(eventID string, keyword model.Keyword) string {
	return eventID + "\x00" + string(keyword)
}

// CheckAndMark reports whether the pair was already seen and marks it.
func (d *Deduplicator) CheckAndMark(eventID string, keyword model.Keyword) bool {
	key := dedupKey(eventID, keyword)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)

	if len(d.order) > d.capacity {
		keep := d.capacity / 2
		cut := len(d.order) - keep
		for _, k := range d.order[:cut] {
			delete(d.seen, k)
		}
		d.order = append([]string(nil), d.order[cut:]...)
	}
	return false
}

// Forget removes a pair, used when the event could not be stored.
func (d *Deduplicator) Forget(eventID string, keyword model.Keyword) {
	key := dedupKey(eventID, keyword)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; !ok {
		return
	}
	delete(d.seen, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
