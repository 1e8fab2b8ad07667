// Package session holds a client's view of its ledger: who it is, the
// latest snapshot with derived reports, and the transaction being entered.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/budget-server/internal/auth"
	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/report"
	"github.com/carson-networks/budget-server/internal/service"
)

type State int

const (
	Initializing State = iota
	Authenticating
	Ready
	AuthFailed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Authenticating:
		return "authenticating"
	case Ready:
		return "ready"
	case AuthFailed:
		return "auth_failed"
	}
	return "unknown"
}

var (
	ErrNotReady       = errors.New("session is not ready")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrClosed         = errors.New("session is closed")
	ErrSuperseded     = errors.New("identity establishment superseded")
)

// Ledger is the store the session reads from and appends to.
type Ledger interface {
	Subscribe(scope string, onSnapshot func([]service.Transaction), onError func(error)) func()
	CreateTransaction(ctx context.Context, scope string, transaction service.NormalizedTransaction) (service.Transaction, error)
}

// View is an immutable copy of the session state.
type View struct {
	State        State
	Scope        string
	Transactions []service.Transaction
	Reports      []report.MonthlyReport

	// SnapshotVersion increases with every delivered snapshot.
	SnapshotVersion uint64

	// Stale is set when the feed failed; Transactions is the last good
	// snapshot.
	Stale   bool
	FeedErr error

	IdentityErr  error
	LastWriteErr error
	InFlight     bool
	Draft        service.Draft
}

type Session struct {
	authenticator auth.Authenticator
	ledger        Ledger
	registry      *category.Registry
	log           *logrus.Logger
	now           func() time.Time

	mu           sync.Mutex
	state        State
	scope        string
	generation   uint64
	unsubscribe  func()
	transactions []service.Transaction
	reports      []report.MonthlyReport
	version      uint64
	stale        bool
	feedErr      error
	identityErr  error
	lastWriteErr error
	inFlight     bool
	draft        service.Draft
	closed       bool

	listeners    map[int]func(View)
	nextListener int

	// deliverMu orders deliveries: a view is captured and handed to every
	// listener before the next one is captured.
	deliverMu sync.Mutex
}

func New(authenticator auth.Authenticator, ledger Ledger, registry *category.Registry, log *logrus.Logger) *Session {
	s := &Session{
		authenticator: authenticator,
		ledger:        ledger,
		registry:      registry,
		log:           log,
		now:           time.Now,
		state:         Initializing,
		transactions:  []service.Transaction{},
		reports:       []report.MonthlyReport{},
		listeners:     make(map[int]func(View)),
	}
	s.draft = s.freshDraft()
	return s
}

// WithClock replaces the clock used for default draft dates.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.mu.Lock()
	s.now = now
	s.draft = s.freshDraft()
	s.mu.Unlock()
	return s
}

// Establish resolves the caller's scope and starts the live feed for it.
// Any previous subscription is ended first, so at most one is ever active.
// On failure the session is AuthFailed and the returned error is an
// *auth.IdentityError.
func (s *Session) Establish(ctx context.Context, credential string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	previous := s.unsubscribe
	s.unsubscribe = nil
	s.generation++
	gen := s.generation
	s.state = Authenticating
	s.scope = ""
	s.transactions = []service.Transaction{}
	s.reports = []report.MonthlyReport{}
	s.stale = false
	s.feedErr = nil
	s.identityErr = nil
	s.mu.Unlock()

	if previous != nil {
		previous()
	}
	s.notify()

	scope, err := s.authenticator.Establish(ctx, credential)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		var identityErr *auth.IdentityError
		if !errors.As(err, &identityErr) {
			err = &auth.IdentityError{Err: err}
		}
		s.state = AuthFailed
		s.identityErr = err
		s.mu.Unlock()

		s.log.WithError(err).Warn("Session.Establish.identity failed")
		s.notify()
		return err
	}
	s.state = Ready
	s.scope = scope
	s.mu.Unlock()

	unsubscribe := s.ledger.Subscribe(scope,
		func(transactions []service.Transaction) { s.applySnapshot(gen, transactions) },
		func(err error) { s.applyFeedError(gen, err) },
	)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		unsubscribe()
		return ErrSuperseded
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.log.WithField("scope", scope).Debug("Session.Establish.ready")
	s.notify()
	return nil
}

func (s *Session) applySnapshot(gen uint64, transactions []service.Transaction) {
	reports := report.BuildReports(transactions)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	if transactions == nil {
		transactions = []service.Transaction{}
	}
	s.transactions = transactions
	s.reports = reports
	s.version++
	s.stale = false
	s.feedErr = nil
	s.mu.Unlock()

	s.notify()
}

func (s *Session) applyFeedError(gen uint64, err error) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.stale = true
	s.feedErr = err
	s.mu.Unlock()

	s.log.WithError(err).Warn("Session.feed.stale")
	s.notify()
}

func (s *Session) SetDraft(draft service.Draft) {
	s.mu.Lock()
	s.draft = draft
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Draft() service.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Submit validates the current draft and appends it. Only one submission
// runs at a time. A rejected draft or failed write leaves the draft in
// place; a successful write resets it unless it was replaced meanwhile.
func (s *Session) Submit(ctx context.Context) (service.Transaction, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return service.Transaction{}, ErrClosed
	}
	if s.state != Ready {
		s.mu.Unlock()
		return service.Transaction{}, ErrNotReady
	}
	if s.inFlight {
		s.mu.Unlock()
		return service.Transaction{}, ErrSubmitInFlight
	}
	normalized, err := service.ValidateDraft(s.draft, s.registry)
	if err != nil {
		s.mu.Unlock()
		return service.Transaction{}, err
	}
	scope := s.scope
	submitted := s.draft
	s.inFlight = true
	s.lastWriteErr = nil
	s.mu.Unlock()
	s.notify()

	stored, err := s.ledger.CreateTransaction(ctx, scope, normalized)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		var writeErr *service.WriteError
		if !errors.As(err, &writeErr) {
			err = &service.WriteError{Err: err}
		}
		s.lastWriteErr = err
	} else if s.draft == submitted {
		// A draft edited while the write was in flight is kept.
		s.draft = s.freshDraft()
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.log.WithError(err).WithField("scope", scope).Warn("Session.Submit.write failed")
		return service.Transaction{}, err
	}
	return stored, nil
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// OnChange registers fn to receive a View after every state change. Views
// arrive one at a time in the order the changes happened. fn must not call
// methods that change the session. The returned function removes it.
func (s *Session) OnChange(fn func(View)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close ends the live feed. Further calls do nothing.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) notify() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	view := s.viewLocked()
	listeners := make([]func(View), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
}

func (s *Session) viewLocked() View {
	transactions := make([]service.Transaction, len(s.transactions))
	copy(transactions, s.transactions)
	reports := make([]report.MonthlyReport, len(s.reports))
	for i, r := range s.reports {
		breakdown := make(map[string]decimal.Decimal, len(r.CategoryBreakdown))
		for name, amount := range r.CategoryBreakdown {
			breakdown[name] = amount
		}
		r.CategoryBreakdown = breakdown
		reports[i] = r
	}

	return View{
		State:           s.state,
		Scope:           s.scope,
		Transactions:    transactions,
		Reports:         reports,
		SnapshotVersion: s.version,
		Stale:           s.stale,
		FeedErr:         s.feedErr,
		IdentityErr:     s.identityErr,
		LastWriteErr:    s.lastWriteErr,
		InFlight:        s.inFlight,
		Draft:           s.draft,
	}
}

func (s *Session) freshDraft() service.Draft {
	selection := s.registry.DefaultSelection()
	return service.Draft{
		Kind:     selection.Kind,
		Category: selection.Name,
		Date:     s.now().Format(time.DateOnly),
	}
}
