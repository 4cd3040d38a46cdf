package cart

import "context"

// Storage is the durable key/value substrate a session's cart is written to.
// Namespaces isolate sessions; keys follow the browser-storage layout.
type Storage interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
}

// Observer receives cart activity for metrics.
type Observer interface {
	IncMutation(op string)
	IncPersistFailure(op string)
	IncLoadFailure()
	SetActiveSessions(n int)
}

type noopObserver struct{}

func (noopObserver) IncMutation(string)       {}
func (noopObserver) IncPersistFailure(string) {}
func (noopObserver) IncLoadFailure()          {}
func (noopObserver) SetActiveSessions(int)    {}
