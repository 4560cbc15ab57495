package services

import (
	"sync"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/session"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

// StateSaver persists a user's state documents. Satisfied by the SQL user
// repository.
type StateSaver interface {
	SaveState(username string, state *progress.GamificationState, products *catalog.Cache) error
}

// SaveScheduler debounces persistence for one session. Every mutation calls
// Schedule; only the last call in a quiet window triggers a save, so a burst
// of scans costs one write. Save failures are logged and dropped, never
// retried.
type SaveScheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	window  time.Duration
	sc      *session.Context
	saver   StateSaver
	logger  *logging.ChanneledLogger
	stopped bool
}

// NewSaveScheduler creates a scheduler for a session
func NewSaveScheduler(sc *session.Context, saver StateSaver, window time.Duration, logger *logging.ChanneledLogger) *SaveScheduler {
	return &SaveScheduler{
		window: window,
		sc:     sc,
		saver:  saver,
		logger: logger,
	}
}

// Schedule arms the debounce timer, restarting the window when one is
// already pending
func (s *SaveScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() {
		if err := s.save(); err != nil {
			s.logger.WithOperation(logging.ChannelSession, "debounced_save").Error("Save failed",
				"username", logging.SanitizeUsername(s.sc.Username),
				"error", err.Error(),
			)
		}
	})
}

// Flush cancels any pending timer and saves synchronously. Used on logout
// and shutdown.
func (s *SaveScheduler) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.save()
}

// Stop cancels any pending save without persisting
func (s *SaveScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// save snapshots the session state under its read lock and persists it
func (s *SaveScheduler) save() error {
	var err error
	s.sc.ReadState(func(state *progress.GamificationState, products *catalog.Cache) {
		err = s.saver.SaveState(s.sc.Username, state, products)
	})
	if err == nil {
		s.logger.Session().Debug("Session state persisted", "username", logging.SanitizeUsername(s.sc.Username))
	}
	return err
}
