// Package session provides the in-memory session context. Each signed-in
// user gets one Context holding their progression state, product cache, and
// feedback queue; handlers operate on the context instead of global state.
package session

import (
	"sync"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
)

// Context is the live state of one user session. The embedded mutex guards
// State and Products; Queue carries its own lock.
type Context struct {
	mu sync.RWMutex

	Username string
	State    *progress.GamificationState
	Products *catalog.Cache
	Queue    *feedback.Queue

	CreatedAt    time.Time
	lastAccessed time.Time
}

// NewContext creates a session context around loaded user state
func NewContext(username string, state *progress.GamificationState, products *catalog.Cache, queue *feedback.Queue) *Context {
	if state == nil {
		state = progress.NewGamificationState()
	}
	state.Normalize()
	if products == nil {
		products = catalog.NewCache()
	}
	now := time.Now()
	return &Context{
		Username:     username,
		State:        state,
		Products:     products,
		Queue:        queue,
		CreatedAt:    now,
		lastAccessed: now,
	}
}

// Touch records session activity
func (c *Context) Touch() {
	c.mu.Lock()
	c.lastAccessed = time.Now()
	c.mu.Unlock()
}

// LastAccessed returns the time of the most recent activity
func (c *Context) LastAccessed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAccessed
}

// WithState runs fn while holding the write lock. Mutations to progression
// state and the product cache go through here.
func (c *Context) WithState(fn func(state *progress.GamificationState, products *catalog.Cache)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.State, c.Products)
}

// ReadState runs fn while holding the read lock
func (c *Context) ReadState(fn func(state *progress.GamificationState, products *catalog.Cache)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.State, c.Products)
}

// Close tears down session-owned resources
func (c *Context) Close() {
	if c.Queue != nil {
		c.Queue.Close()
	}
}
