// Package amqp distributes transaction change notifications over a RabbitMQ
// fanout exchange so every server instance refreshes its live feeds.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/budget-server/internal/storage/feed"
)

const maxReconnectAttempts = 10

var _ feed.Notifier = (*Notifier)(nil)

type Notifier struct {
	url          string
	exchangeName string
	log          *logrus.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewNotifier(url, exchangeName string, log *logrus.Logger) (*Notifier, error) {
	n := &Notifier{
		url:          url,
		exchangeName: exchangeName,
		log:          log,
	}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Notifier) connect() error {
	conn, err := amqp091.Dial(n.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		n.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	n.mu.Lock()
	oldConn, oldChannel := n.conn, n.channel
	n.conn = conn
	n.channel = channel
	n.mu.Unlock()

	// The previous pair is usually dead already; close it regardless.
	if oldChannel != nil {
		_ = oldChannel.Close()
	}
	if oldConn != nil {
		_ = oldConn.Close()
	}
	return nil
}

func (n *Notifier) Publish(ctx context.Context, scope string) error {
	body, err := NewChangeMessage(scope).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n.mu.Lock()
	channel := n.channel
	n.mu.Unlock()

	err = channel.PublishWithContext(
		ctx,
		n.exchangeName, // exchange
		"",             // routing key, ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Listen consumes change messages on a private queue, reconnecting with
// backoff on connection errors. After a reconnect every scope is refreshed.
func (n *Notifier) Listen(ctx context.Context, onChange func(scope string)) error {
	attempt := 0
	for {
		err := n.consume(ctx, onChange)
		if ctx.Err() != nil {
			return nil
		}
		if !isConnectionError(err) || attempt >= maxReconnectAttempts {
			return err
		}

		wait := exponentialBackoff(attempt)
		n.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("Notifier.Listen.reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		attempt++

		if err := n.connect(); err != nil {
			n.log.WithError(err).Warn("Notifier.Listen.reconnect failed")
			continue
		}
		attempt = 0
		onChange(feed.AllScopes)
	}
}

func (n *Notifier) consume(ctx context.Context, onChange func(scope string)) error {
	n.mu.Lock()
	channel := n.channel
	n.mu.Unlock()

	queue, err := channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "", n.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("connection closed: delivery channel closed")
			}
			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				n.log.WithError(err).Warn("Notifier.Listen.bad message")
				continue
			}
			onChange(msg.Scope)
		}
	}
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	wait := time.Second << attempt
	if attempt >= 5 || wait > 30*time.Second {
		return 30 * time.Second
	}
	return wait
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"connection", "closed", "eof", "broken pipe", "reset"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
