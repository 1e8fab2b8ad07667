//go:build integration

package amqp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbit(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestNotifier_PublishReachesListener(t *testing.T) {
	url := startRabbit(t)
	logger, _ := test.NewNullLogger()

	n, err := NewNotifier(url, "budget.changes.test", logger)
	require.NoError(t, err)
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scopes := make(chan string, 8)
	go func() {
		_ = n.Listen(ctx, func(scope string) {
			select {
			case scopes <- scope:
			default:
			}
		})
	}()

	// The private queue binds asynchronously; keep publishing until one lands.
	require.Eventually(t, func() bool {
		if err := n.Publish(ctx, "alice"); err != nil {
			return false
		}
		select {
		case scope := <-scopes:
			return scope == "alice"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)
}

func TestNotifier_ReconnectClosesPreviousConnection(t *testing.T) {
	url := startRabbit(t)
	logger, _ := test.NewNullLogger()

	n, err := NewNotifier(url, "budget.changes.test", logger)
	require.NoError(t, err)
	defer n.Close()

	n.mu.Lock()
	oldConn, oldChannel := n.conn, n.channel
	n.mu.Unlock()

	require.NoError(t, n.connect())

	assert.True(t, oldConn.IsClosed())
	assert.True(t, oldChannel.IsClosed())
	n.mu.Lock()
	assert.NotSame(t, oldConn, n.conn)
	n.mu.Unlock()
	assert.NoError(t, n.Publish(context.Background(), "alice"))
}
