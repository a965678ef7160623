package biz

import (
	"sync"

	"InferGate/internal/conf"
	"InferGate/internal/model"
)

const defaultHistorySize = 1000

// ErrorHistory is a bounded ring buffer of classified failures, retained for
// statistics and provider-health recommendations. Oldest records are
// overwritten when the buffer is full.
type ErrorHistory struct {
	mu      sync.Mutex
	records []model.ErrorRecord
	next    int
	full    bool
}

// NewErrorHistory creates a ring buffer sized from the resilience config.
func NewErrorHistory(c *conf.Resilience) *ErrorHistory {
	size := defaultHistorySize
	if c != nil && c.HistorySize > 0 {
		size = int(c.HistorySize)
	}
	return &ErrorHistory{
		records: make([]model.ErrorRecord, size),
	}
}

// Add appends one classified failure, evicting the oldest when full.
func (h *ErrorHistory) Add(rec model.ErrorRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.next] = rec
	h.next++
	if h.next == len(h.records) {
		h.next = 0
		h.full = true
	}
}

// Len reports how many records are currently retained.
func (h *ErrorHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.full {
		return len(h.records)
	}
	return h.next
}

// Recent returns up to n records, newest first.
func (h *ErrorHistory) Recent(n int) []model.ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.next
	if h.full {
		count = len(h.records)
	}
	if n > count {
		n = count
	}

	out := make([]model.ErrorRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.records)) % len(h.records)
		out = append(out, h.records[idx])
	}
	return out
}

// CountsByProvider aggregates retained records into per-kind counts for the
// given provider.
func (h *ErrorHistory) CountsByProvider(provider string) map[model.ErrorKind]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.next
	if h.full {
		count = len(h.records)
	}

	counts := make(map[model.ErrorKind]int)
	for i := 0; i < count; i++ {
		if h.records[i].Provider == provider {
			counts[h.records[i].Kind]++
		}
	}
	return counts
}
