// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/sugarswap/sugarswap-go/internal/domain/feedback"

// Broadcaster defines the interface for managing SSE client connections and
// pushing feedback and progression events to them.
type Broadcaster interface {
	AddClient(username, sessionID string) chan string
	RemoveClient(ch chan string, username, sessionID string)
	GetConnectionCount(username string) int
	BroadcastFeedback(username string, event feedback.Event)
	BroadcastProgress(username string, payload any)
}
