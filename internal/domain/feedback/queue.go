// Package feedback implements the user feedback queue. Messages produced by
// scans and progression events are shown one at a time: a message stays
// visible until acknowledged, then the display hides briefly before the next
// queued message is promoted.
package feedback

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind distinguishes plain notifications from confirmations
type Kind string

const (
	KindOK      Kind = "ok"      // Single acknowledge button, no side effects
	KindConfirm Kind = "confirm" // Confirm/decline pair, confirm runs OnConfirm
)

// State is the display state of the queue
type State string

const (
	StateIdle    State = "idle"    // Nothing displayed, queue may still hold items
	StateShowing State = "showing" // Current item is displayed, awaiting acknowledge
	StateHiding  State = "hiding"  // Acknowledged item is animating out
)

// Item is one queued feedback message
type Item struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// OnConfirm runs when a confirm-kind item is acknowledged positively.
	// Invoked outside the queue lock.
	OnConfirm func() `json:"-"`
}

// Event is emitted on display transitions so transports can push them out
type Event struct {
	Type string `json:"type"` // "show" or "hide"
	Item *Item  `json:"item"`
}

// Queue serializes feedback display for a single user session
type Queue struct {
	mu         sync.Mutex
	pending    []*Item
	current    *Item
	state      State
	hideWindow time.Duration
	notify     func(Event)
	closed     bool
}

// NewQueue creates an idle feedback queue. notify receives display
// transitions and may be nil. hideWindow is how long the display stays in
// the hiding state before the next item is promoted.
func NewQueue(hideWindow time.Duration, notify func(Event)) *Queue {
	return &Queue{
		state:      StateIdle,
		hideWindow: hideWindow,
		notify:     notify,
	}
}

// Enqueue appends an item and promotes it immediately when the display is
// idle. The item's ID and timestamp are assigned here; the assigned ID is
// returned for acknowledgement.
func (q *Queue) Enqueue(item *Item) string {
	q.mu.Lock()
	item.ID = ulid.Make().String()
	item.CreatedAt = time.Now()
	q.pending = append(q.pending, item)

	var event *Event
	if q.state == StateIdle && !q.closed {
		event = q.promoteLocked()
	}
	q.mu.Unlock()

	q.emit(event)
	return item.ID
}

// promoteLocked pops the head of the queue into the display slot. Caller
// holds the lock.
func (q *Queue) promoteLocked() *Event {
	if len(q.pending) == 0 {
		q.state = StateIdle
		q.current = nil
		return nil
	}
	q.current = q.pending[0]
	q.pending = q.pending[1:]
	q.state = StateShowing
	return &Event{Type: "show", Item: q.current}
}

// Acknowledge resolves the currently displayed item. For confirm-kind items
// the confirmed flag selects whether OnConfirm runs. The display enters the
// hiding state and promotes the next item after the hide window elapses.
func (q *Queue) Acknowledge(id string, confirmed bool) error {
	q.mu.Lock()
	if q.state != StateShowing || q.current == nil {
		q.mu.Unlock()
		return fmt.Errorf("no feedback awaiting acknowledgement")
	}
	if q.current.ID != id {
		q.mu.Unlock()
		return fmt.Errorf("feedback %s is not the displayed item", id)
	}

	item := q.current
	q.state = StateHiding
	hideEvent := &Event{Type: "hide", Item: item}

	time.AfterFunc(q.hideWindow, func() {
		q.mu.Lock()
		var event *Event
		if q.state == StateHiding && !q.closed {
			event = q.promoteLocked()
		}
		q.mu.Unlock()
		q.emit(event)
	})
	q.mu.Unlock()

	q.emit(hideEvent)

	// OnConfirm runs after the hide transition starts, outside the lock:
	// items it enqueues join the queue during the hide window and display
	// once it elapses, never alongside the item being dismissed.
	if item.Kind == KindConfirm && confirmed && item.OnConfirm != nil {
		item.OnConfirm()
	}
	return nil
}

// Current returns the displayed item and state
func (q *Queue) Current() (*Item, State) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current, q.state
}

// PendingCount returns the number of items waiting behind the display
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close drops pending items and stops further promotion. Used at session
// teardown.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
	q.current = nil
	q.state = StateIdle
}

func (q *Queue) emit(event *Event) {
	if event != nil && q.notify != nil {
		q.notify(*event)
	}
}
