package usecase

import (
	"sync"

	"omniscient/internal/domain/models"
)

const feedCapacity = 50

// SignalFeed keeps the most recent signals in memory, newest first.
// Reads before the first scan return a single bootstrap entry.
type SignalFeed struct {
	mu      sync.RWMutex
	entries []models.Signal
}

func NewSignalFeed() *SignalFeed {
	return &SignalFeed{}
}

// Push prepends signals and trims the feed to capacity.
func (f *SignalFeed) Push(signals ...models.Signal) {
	if len(signals) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(signals, f.entries...)
	if len(f.entries) > feedCapacity {
		f.entries = f.entries[:feedCapacity]
	}
}

// Recent returns up to limit signals, newest first.
func (f *SignalFeed) Recent(limit int) []models.Signal {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.entries) == 0 {
		return []models.Signal{
			models.NewSignal(models.SignalInfo, "", "System initialized. Awaiting first scan..."),
		}
	}
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]models.Signal, limit)
	copy(out, f.entries[:limit])
	return out
}

// Len returns the number of buffered signals.
func (f *SignalFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
