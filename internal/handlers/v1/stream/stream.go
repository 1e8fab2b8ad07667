// Package stream serves a client's live ledger as server-sent events,
// driven by a session.
package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/carson-networks/budget-server/internal/auth"
	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/handlers/v1/report"
	"github.com/carson-networks/budget-server/internal/handlers/v1/transaction"
	"github.com/carson-networks/budget-server/internal/session"
)

type StreamInput struct {
	Token         string `query:"token" doc:"Credential for clients that cannot set headers"`
	Authorization string `header:"Authorization" doc:"Bearer credential"`
}

type StateEvent struct {
	State string `json:"state" enum:"initializing,authenticating,ready,auth_failed"`
	Scope string `json:"scope,omitempty"`
}

type SnapshotEvent struct {
	Version      uint64                    `json:"version"`
	Transactions []transaction.Transaction `json:"transactions" doc:"Newest first"`
	Reports      []report.MonthlyReport    `json:"reports" doc:"Newest month first"`
}

type StaleEvent struct {
	Error string `json:"error"`
}

type AuthFailedEvent struct {
	Error string `json:"error"`
}

// StreamHandler handles GET /v1/stream.
type StreamHandler struct {
	NewSession func() *session.Session
	Categories *category.Registry

	// closing ends every open stream when closed. The server does not
	// cancel request contexts on shutdown.
	closing <-chan struct{}
}

func NewStreamHandler(newSession func() *session.Session, registry *category.Registry) *StreamHandler {
	return &StreamHandler{NewSession: newSession, Categories: registry}
}

// EndOn makes open streams finish when done is closed.
func (h *StreamHandler) EndOn(done <-chan struct{}) *StreamHandler {
	h.closing = done
	return h
}

func (h *StreamHandler) Register(api huma.API) {
	sse.Register(api, huma.Operation{
		OperationID: "stream",
		Method:      http.MethodGet,
		Path:        "/v1/stream",
		Summary:     "Live ledger",
		Description: "Establishes identity, then streams the full transaction list and monthly reports after every change.",
		Tags:        []string{"Stream"},
	}, map[string]any{
		"state":       StateEvent{},
		"snapshot":    SnapshotEvent{},
		"stale":       StaleEvent{},
		"auth_failed": AuthFailedEvent{},
	}, h.handle)
}

func (h *StreamHandler) handle(ctx context.Context, input *StreamInput, send sse.Sender) {
	sess := h.NewSession()
	defer sess.Close()

	updates := make(chan struct{}, 1)
	var mu sync.Mutex
	var latest session.View
	remove := sess.OnChange(func(v session.View) {
		mu.Lock()
		if v.SnapshotVersion >= latest.SnapshotVersion {
			latest = v
		}
		mu.Unlock()
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer remove()

	credential := input.Token
	if credential == "" {
		credential = auth.BearerCredential(input.Authorization)
	}
	if err := sess.Establish(ctx, credential); err != nil {
		var identityErr *auth.IdentityError
		if errors.As(err, &identityErr) {
			_ = send.Data(StateEvent{State: session.AuthFailed.String()})
			_ = send.Data(AuthFailedEvent{Error: err.Error()})
		}
		return
	}

	e := &emitter{send: send, categories: h.Categories, lastState: -1}
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case <-updates:
			mu.Lock()
			view := latest
			mu.Unlock()
			if err := e.emit(view); err != nil {
				return
			}
		}
	}
}

// emitter sends only what changed since the previous view.
type emitter struct {
	send        sse.Sender
	categories  *category.Registry
	lastState   session.State
	lastVersion uint64
	lastStale   bool
}

func (e *emitter) emit(v session.View) error {
	// Views older than one already sent are dropped.
	if v.SnapshotVersion < e.lastVersion {
		return nil
	}

	if v.State != e.lastState {
		e.lastState = v.State
		if err := e.send.Data(StateEvent{State: v.State.String(), Scope: v.Scope}); err != nil {
			return err
		}
	}

	if v.SnapshotVersion != e.lastVersion {
		e.lastVersion = v.SnapshotVersion
		transactions := make([]transaction.Transaction, len(v.Transactions))
		for i, tx := range v.Transactions {
			transactions[i] = transaction.FromService(tx)
		}
		err := e.send.Data(SnapshotEvent{
			Version:      v.SnapshotVersion,
			Transactions: transactions,
			Reports:      report.FromEngine(v.Reports, e.categories),
		})
		if err != nil {
			return err
		}
	}

	if v.Stale && !e.lastStale && v.FeedErr != nil {
		if err := e.send.Data(StaleEvent{Error: v.FeedErr.Error()}); err != nil {
			return err
		}
	}
	e.lastStale = v.Stale
	return nil
}
