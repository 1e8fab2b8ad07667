// Package feed fans change notifications for a user scope out to live
// snapshot subscriptions.
package feed

import (
	"context"
	"sync"
)

// AllScopes asks every subscription to refresh, e.g. after a reconnect
// where notifications may have been missed.
const AllScopes = ""

// Notifier carries "scope changed" signals between writers and readers,
// possibly across processes.
type Notifier interface {
	Publish(ctx context.Context, scope string) error
	// Listen blocks until ctx is done or the transport fails.
	Listen(ctx context.Context, onChange func(scope string)) error
}

// LocalNotifier delivers notifications within the process.
type LocalNotifier struct {
	mu        sync.RWMutex
	listeners map[int]func(string)
	nextID    int
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[int]func(string))}
}

func (n *LocalNotifier) Publish(ctx context.Context, scope string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, fn := range n.listeners {
		fn(scope)
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context, onChange func(scope string)) error {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = onChange
	n.mu.Unlock()

	<-ctx.Done()

	n.mu.Lock()
	delete(n.listeners, id)
	n.mu.Unlock()
	return nil
}
