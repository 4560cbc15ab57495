// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages user-scoped, session-specific SSE connections.
// One user may hold several connections (multiple tabs or devices).
type SSEBroadcaster struct {
	userSessions map[string]map[string][]chan string // username -> sessionId -> []channels
	mu           sync.Mutex
	logger       *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			userSessions: make(map[string]map[string][]chan string),
			logger:       logger,
		}
	})
	return globalBroadcaster
}

// AddClient registers a new SSE client for a user session.
func (b *SSEBroadcaster) AddClient(username, sessionID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.userSessions[username] == nil {
		b.userSessions[username] = make(map[string][]chan string)
	}
	b.userSessions[username][sessionID] = append(b.userSessions[username][sessionID], ch)

	b.logger.SSE().Debug("SSE client registered", "username", logging.SanitizeUsername(username), "sessionId", sessionID)
	return ch
}

// RemoveClient removes an SSE client and prunes empty session entries.
func (b *SSEBroadcaster) RemoveClient(ch chan string, username, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sessions, exists := b.userSessions[username]; exists {
		if clients, exists := sessions[sessionID]; exists {
			newClients := make([]chan string, 0, len(clients))
			for _, client := range clients {
				if client != ch {
					newClients = append(newClients, client)
				}
			}
			sessions[sessionID] = newClients

			if len(sessions[sessionID]) == 0 {
				delete(sessions, sessionID)
			}
		}
		if len(sessions) == 0 {
			delete(b.userSessions, username)
		}
	}
	b.logger.SSE().Debug("SSE client unregistered", "username", logging.SanitizeUsername(username), "sessionId", sessionID)
}

// GetConnectionCount returns the total connection count for a user.
func (b *SSEBroadcaster) GetConnectionCount(username string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for _, clients := range b.userSessions[username] {
		count += len(clients)
	}
	return count
}

// BroadcastFeedback pushes a feedback display transition to every
// connection the user holds.
func (b *SSEBroadcaster) BroadcastFeedback(username string, event feedback.Event) {
	b.broadcast(username, "feedback", event)
}

// BroadcastProgress pushes a progression update (XP, level, streak) to
// every connection the user holds.
func (b *SSEBroadcaster) BroadcastProgress(username string, payload any) {
	b.broadcast(username, "progress", payload)
}

func (b *SSEBroadcaster) broadcast(username, eventName string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in broadcast", "error", r, "username", logging.SanitizeUsername(username))
		}
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal broadcast payload", "error", err.Error(), "event", eventName)
		return
	}
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", eventName, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	sessions, exists := b.userSessions[username]
	if !exists {
		return
	}

	delivered := 0
	for sessionID, clients := range sessions {
		for _, client := range clients {
			select {
			case client <- message:
				delivered++
			default:
				// Slow consumer, drop the event rather than block
				b.logger.SSE().Warn("Dropped event for slow SSE client", "username", logging.SanitizeUsername(username), "sessionId", sessionID, "event", eventName)
			}
		}
	}

	b.logger.SSE().Debug("Event broadcast",
		"username", logging.SanitizeUsername(username),
		"event", eventName,
		"delivered", delivered,
	)
}
