package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

// SessionsParams configure the session registry.
type SessionsParams struct {
	Storage      Storage
	Logger       *logger.Logger
	Observer     Observer
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Sessions hands out the single Store of each session. A store is created and
// seeded from storage on first access and shared by every caller afterwards.
type Sessions struct {
	mu     sync.Mutex
	stores map[string]*Store

	storage      Storage
	logg         *logger.Logger
	observer     Observer
	writeTimeout time.Duration
	now          func() time.Time
}

// NewSessions builds a registry backed by the provided storage.
func NewSessions(params SessionsParams) (*Sessions, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	observer := params.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Sessions{
		stores:       make(map[string]*Store),
		storage:      params.Storage,
		logg:         params.Logger,
		observer:     observer,
		writeTimeout: params.WriteTimeout,
		now:          now,
	}, nil
}

// Get returns the session's store, loading it on first access.
func (r *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session id is required")
	}

	r.mu.Lock()
	if store, ok := r.stores[sessionID]; ok {
		// under the registry lock so a concurrent Sweep sees the access
		store.touch()
		r.mu.Unlock()
		return store, nil
	}
	r.mu.Unlock()

	// Loading happens outside the registry lock so slow storage only delays
	// the session being loaded.
	loaded := LoadStore(ctx, StoreParams{
		SessionID:    sessionID,
		Storage:      r.storage,
		Logger:       r.logg,
		Observer:     r.observer,
		WriteTimeout: r.writeTimeout,
		Now:          r.now,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.stores[sessionID]; ok {
		store.touch()
		return store, nil
	}
	r.stores[sessionID] = loaded
	r.observer.SetActiveSessions(len(r.stores))
	return loaded, nil
}

// Active reports how many sessions currently hold an in-memory store.
func (r *Sessions) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Release drops the in-memory store of a session. Durable state is kept, so
// the next Get rebuilds the same cart.
func (r *Sessions) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, sessionID)
	r.observer.SetActiveSessions(len(r.stores))
}

// Sweep releases every store untouched for longer than idle and returns how
// many were released.
func (r *Sessions) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for id, store := range r.stores {
		if store.idleSince().Before(cutoff) {
			delete(r.stores, id)
			released++
		}
	}
	if released > 0 {
		r.observer.SetActiveSessions(len(r.stores))
	}
	return released
}

// RunSweeper periodically releases idle stores until the context is canceled.
func (r *Sessions) RunSweeper(ctx context.Context, interval, idle time.Duration) error {
	if interval <= 0 || idle <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			released := r.Sweep(idle)
			if released > 0 && r.logg != nil {
				r.logg.Info(r.logg.WithField(ctx, "released", released), "cart.sessions_swept")
			}
		}
	}
}
