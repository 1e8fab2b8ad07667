package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub owns the live subscriptions. Each subscription runs on its own
// goroutine; wake-ups coalesce so a burst of writes produces at most one
// extra refresh, and a subscription's callbacks never overlap.
type Hub struct {
	notifier   Notifier
	log        *logrus.Logger
	retryDelay func(attempt int) time.Duration

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
}

const maxRetryDelay = 30 * time.Second

var errListenEnded = errors.New("change notifications stopped")

// backoff doubles from one second up to maxRetryDelay.
func backoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxRetryDelay
	}
	return time.Second << attempt
}

type subscription struct {
	scope   string
	wake    chan struct{}
	failure chan error
	cancel  context.CancelFunc
}

func NewHub(notifier Notifier, log *logrus.Logger) *Hub {
	return &Hub{
		notifier:   notifier,
		log:        log,
		retryDelay: backoff,
		subs:       make(map[uint64]*subscription),
	}
}

// Subscribe calls refresh once straight away and again after every change
// to scope. onFeedError is called if the notification transport fails.
// The returned function ends the subscription and is safe to call repeatedly.
func (h *Hub) Subscribe(scope string, refresh func(ctx context.Context), onFeedError func(error)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		scope:   scope,
		wake:    make(chan struct{}, 1),
		failure: make(chan error, 1),
		cancel:  cancel,
	}
	sub.wake <- struct{}{}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
				if ctx.Err() != nil {
					return
				}
				refresh(ctx)
			case err := <-sub.failure:
				if ctx.Err() != nil {
					return
				}
				onFeedError(err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			cancel()
		})
	}
}

// Publish announces a change to scope through the notifier.
func (h *Hub) Publish(ctx context.Context, scope string) error {
	return h.notifier.Publish(ctx, scope)
}

// Run forwards notifier events to subscriptions until ctx is done. When the
// notifier fails every subscription is told, and after a pause Run listens
// again and refreshes every subscription to cover what was missed.
func (h *Hub) Run(ctx context.Context) error {
	attempt := 0
	for {
		started := time.Now()
		err := h.notifier.Listen(ctx, h.wake)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errListenEnded
		}
		if time.Since(started) > maxRetryDelay {
			attempt = 0
		}

		delay := h.retryDelay(attempt)
		h.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"retryIn": delay.String(),
		}).Error("Hub.Run.notifier failed")
		h.fail(err)
		attempt++

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		h.wake(AllScopes)
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) wake(scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if scope != AllScopes && sub.scope != scope {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.failure <- err:
		default:
		}
	}
}
