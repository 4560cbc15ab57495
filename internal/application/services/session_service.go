package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/session"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/messaging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/user"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

// UserRepository is the persistence surface the session layer needs
type UserRepository interface {
	FindByUsername(username string) (*user.Record, error)
	Create(record *user.Record) error
	StateSaver
}

// sessionEntry pairs a live session context with its save scheduler
type sessionEntry struct {
	ctx   *session.Context
	saver *SaveScheduler
}

// SessionService owns the registry of live user sessions. One session
// context exists per signed-in user; repeated logins share it.
type SessionService struct {
	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	repo        UserRepository
	broadcaster messaging.Broadcaster
	saveWindow  time.Duration
	logger      *logging.ChanneledLogger
}

// NewSessionService creates the session registry
func NewSessionService(repo UserRepository, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *SessionService {
	return &SessionService{
		sessions:    make(map[string]*sessionEntry),
		repo:        repo,
		broadcaster: broadcaster,
		saveWindow:  config.SaveDebounceWindow,
		logger:      logger,
	}
}

// Acquire returns the live session for a user, loading state from the
// repository and wiring the feedback queue on first touch
func (s *SessionService) Acquire(username string) (*session.Context, *SaveScheduler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[username]; ok {
		entry.ctx.Touch()
		return entry.ctx, entry.saver, nil
	}

	record, err := s.repo.FindByUsername(username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user state: %w", err)
	}
	if record == nil {
		return nil, nil, fmt.Errorf("user %s does not exist", username)
	}

	queue := feedback.NewQueue(config.FeedbackHideWindow, func(event feedback.Event) {
		s.broadcaster.BroadcastFeedback(username, event)
	})
	ctx := session.NewContext(username, record.State, record.Products, queue)
	saver := NewSaveScheduler(ctx, s.repo, s.saveWindow, s.logger)

	s.sessions[username] = &sessionEntry{ctx: ctx, saver: saver}
	s.logger.Session().Info("Session created", "username", logging.SanitizeUsername(username))
	return ctx, saver, nil
}

// Peek returns the live session without creating one
func (s *SessionService) Peek(username string) (*session.Context, *SaveScheduler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[username]
	if !ok {
		return nil, nil, false
	}
	return entry.ctx, entry.saver, true
}

// Release flushes pending state and tears the session down. Used on logout.
func (s *SessionService) Release(username string) {
	s.mu.Lock()
	entry, ok := s.sessions[username]
	if ok {
		delete(s.sessions, username)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := entry.saver.Flush(); err != nil {
		s.logger.Session().Error("Final save on release failed", "username", logging.SanitizeUsername(username), "error", err.Error())
	}
	entry.saver.Stop()
	entry.ctx.Close()
	s.logger.Session().Info("Session released", "username", logging.SanitizeUsername(username))
}

// FlushAll persists every live session. Used on shutdown.
func (s *SessionService) FlushAll() {
	s.mu.Lock()
	entries := make(map[string]*sessionEntry, len(s.sessions))
	for username, entry := range s.sessions {
		entries[username] = entry
	}
	s.mu.Unlock()

	for username, entry := range entries {
		if err := entry.saver.Flush(); err != nil {
			s.logger.Session().Error("Shutdown save failed", "username", logging.SanitizeUsername(username), "error", err.Error())
		}
	}
	s.logger.Session().Info("All sessions flushed", "count", len(entries))
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartCleanup launches the idle-session eviction worker. Idle sessions are
// flushed and dropped so memory tracks active users.
func (s *SessionService) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle(maxIdle)
			}
		}
	}()
}

func (s *SessionService) evictIdle(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var idle []string
	for username, entry := range s.sessions {
		if entry.ctx.LastAccessed().Before(cutoff) {
			idle = append(idle, username)
		}
	}
	s.mu.Unlock()

	for _, username := range idle {
		s.Release(username)
	}
	if len(idle) > 0 {
		s.logger.Session().Info("Idle sessions evicted", "count", len(idle))
	}
}
