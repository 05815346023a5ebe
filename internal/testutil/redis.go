//go:build integration

// Package testutil holds helpers for tests that need a real Redis or Docker.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dyluth/swarm/pkg/blackboard"
)

// StartRedis starts a throwaway Redis container and returns its URL.
// The container is terminated when the test ends.
func StartRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start Redis container")

	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err, "Failed to get container host")

	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err, "Failed to get container port")

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

// NewBlackboard connects a blackboard client to a fresh Redis container.
func NewBlackboard(t *testing.T, instanceName string) *blackboard.Client {
	t.Helper()

	opts, err := redis.ParseURL(StartRedis(t))
	require.NoError(t, err, "Failed to parse Redis URL")

	client, err := blackboard.NewClient(opts, instanceName)
	require.NoError(t, err, "Failed to create blackboard client")
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()), "Redis did not answer PING")
	return client
}
