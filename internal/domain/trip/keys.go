package trip

import (
	"strconv"
	"sync"
	"time"
)

// KeyClock hands out record keys: the current time in milliseconds,
// bumped by one whenever it would not be strictly greater than the last
// key issued by this clock.
type KeyClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewKeyClock creates a clock reading time from now.
func NewKeyClock(now func() time.Time) *KeyClock {
	if now == nil {
		now = time.Now
	}
	return &KeyClock{now: now}
}

// Next returns the next key.
func (c *KeyClock) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return strconv.FormatInt(ms, 10)
}
