package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers for all operations
type Tracker struct {
	markers map[string]*Marker
	mu      sync.RWMutex
	nextID  int
}

// NewTracker creates a new performance tracker
func NewTracker() *Tracker {
	return &Tracker{
		markers: make(map[string]*Marker),
	}
}

// StartOperation begins tracking a new operation and returns its marker
func (t *Tracker) StartOperation(operation string, username string) *Marker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := fmt.Sprintf("%s-%d-%d", operation, time.Now().UnixNano(), t.nextID)

	marker := &Marker{
		Operation: operation,
		Username:  username,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
	}

	t.markers[id] = marker
	return marker
}

// GetCompletedMarkers returns all markers that have finished
func (t *Tracker) GetCompletedMarkers() []*Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var completed []*Marker
	for _, marker := range t.markers {
		if marker.Completed {
			completed = append(completed, marker)
		}
	}
	return completed
}

// GetOverallStats returns aggregate statistics across completed operations
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var totalOps, successOps int
	var totalDuration time.Duration

	for _, marker := range t.markers {
		if !marker.Completed {
			continue
		}
		totalOps++
		totalDuration += marker.Duration
		if marker.Success {
			successOps++
		}
	}

	stats := map[string]any{
		"totalOperations":      totalOps,
		"successfulOperations": successOps,
		"activeOperations":     len(t.markers) - totalOps,
	}

	if totalOps > 0 {
		stats["averageDuration"] = (totalDuration / time.Duration(totalOps)).String()
		stats["successRate"] = float64(successOps) / float64(totalOps)
	}

	return stats
}

// Cleanup removes completed markers older than the given age
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, marker := range t.markers {
		if marker.Completed && marker.EndTime.Before(cutoff) {
			delete(t.markers, id)
			removed++
		}
	}

	return removed
}
