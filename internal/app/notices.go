package app

import (
	"sync"
	"time"
)

const defaultNoticeLimit = 50

// Notice is a transient message a UI would show as an alert.
type Notice struct {
	At      time.Time `json:"at"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// noticeBuffer keeps the most recent notices, oldest first.
type noticeBuffer struct {
	mu    sync.Mutex
	limit int
	items []Notice
}

func newNoticeBuffer(limit int) *noticeBuffer {
	if limit <= 0 {
		limit = defaultNoticeLimit
	}
	return &noticeBuffer{limit: limit}
}

func (b *noticeBuffer) add(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.limit; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
}

func (b *noticeBuffer) list(drain bool) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notice, len(b.items))
	copy(out, b.items)
	if drain {
		b.items = nil
	}
	return out
}
