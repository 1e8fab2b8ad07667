package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/budget-server/internal/operator/actions"
	"github.com/carson-networks/budget-server/internal/storage"
)

var ErrActionPanicked = errors.New("action panicked")

// Operator is one worker draining the shared queue. Every action runs in
// its own storage writer.
type Operator struct {
	id      int
	storage *storage.Storage
	queue   chan ActionItem
	log     *logrus.Logger
}

func NewOperator(id int, s *storage.Storage, queue chan ActionItem, log *logrus.Logger) *Operator {
	return &Operator{
		id:      id,
		storage: s,
		queue:   queue,
		log:     log,
	}
}

// Run processes items until the queue is closed.
func (o *Operator) Run() {
	for item := range o.queue {
		item.response <- ActionItemResponse{err: o.processItem(item)}
	}
}

func (o *Operator) processItem(item ActionItem) error {
	// The caller gave up while the item was queued.
	if err := item.ctx.Err(); err != nil {
		return err
	}

	entry := o.log.WithFields(logrus.Fields{
		"operator": o.id,
		"action":   fmt.Sprintf("%T", item.action),
	})
	start := time.Now()

	writer, err := o.storage.Write(item.ctx)
	if err != nil {
		entry.WithError(err).Error("Operator.processItem.open writer failed")
		return err
	}

	if err := perform(item.ctx, item.action, writer); err != nil {
		if rbErr := writer.Rollback(); rbErr != nil {
			entry.WithError(rbErr).Warn("Operator.processItem.rollback failed")
		}
		return err
	}

	if err := writer.Commit(); err != nil {
		entry.WithError(err).Error("Operator.processItem.commit failed")
		return err
	}

	entry.WithField("duration", time.Since(start).String()).Debug("Operator.processItem.complete")
	return nil
}

// perform runs the action, turning a panic into an error so one bad action
// cannot take a worker down.
func perform(ctx context.Context, action actions.IAction, writer *storage.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()
	return action.Perform(ctx, writer)
}

type ActionItem struct {
	ctx      context.Context
	action   actions.IAction
	response chan ActionItemResponse
}

type ActionItemResponse struct {
	err error
}
