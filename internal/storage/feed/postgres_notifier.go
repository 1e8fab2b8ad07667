package feed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ChangeChannel is the LISTEN/NOTIFY channel carrying changed scopes.
const ChangeChannel = "transactions_changed"

// PostgresNotifier uses LISTEN/NOTIFY so several server instances sharing
// one database see each other's writes.
type PostgresNotifier struct {
	db  *sql.DB
	dsn string
	log *logrus.Logger
}

func NewPostgresNotifier(db *sql.DB, dsn string, log *logrus.Logger) *PostgresNotifier {
	return &PostgresNotifier{db: db, dsn: dsn, log: log}
}

func (n *PostgresNotifier) Publish(ctx context.Context, scope string) error {
	if _, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChangeChannel, scope); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

func (n *PostgresNotifier) Listen(ctx context.Context, onChange func(scope string)) error {
	listener := pq.NewListener(n.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		entry := n.log.WithField("event", ev)
		if err != nil {
			entry = entry.WithError(err)
		}
		switch ev {
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			entry.Warn("PostgresNotifier.Listen.connection problem")
		case pq.ListenerEventReconnected:
			entry.Info("PostgresNotifier.Listen.reconnected")
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case notification := <-listener.Notify:
			// nil after a reconnect; anything may have been missed.
			if notification == nil {
				onChange(AllScopes)
				continue
			}
			onChange(notification.Extra)
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					n.log.WithError(err).Warn("PostgresNotifier.Listen.ping failed")
				}
			}()
		}
	}
}
