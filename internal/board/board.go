// Package board manages the local Redis container that backs the blackboard.
package board

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// DefaultImage is the Redis image started by Up.
const DefaultImage = "redis:7-alpine"

// NewDockerClient creates a Docker client and validates the daemon is accessible.
func NewDockerClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf(`Docker daemon not accessible: %w

Ensure Docker is running:
  • macOS: Docker Desktop
  • Linux: sudo systemctl start docker`, err)
	}

	return cli, nil
}

// UpOptions configures a new board.
type UpOptions struct {
	Name  string
	Image string // Default: DefaultImage
	Port  int    // Host port, 0 picks the next free one
}

// Up pulls the Redis image if needed and starts a labelled board container
// publishing Redis on a host port.
func Up(ctx context.Context, cli *client.Client, opts UpOptions) (*Info, error) {
	if err := ValidateName(opts.Name); err != nil {
		return nil, err
	}
	if opts.Image == "" {
		opts.Image = DefaultImage
	}

	existing, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", LabelInstanceName, opts.Name))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check for name collision: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("board '%s' already exists", opts.Name)
	}

	port := opts.Port
	if port == 0 {
		if port, err = FindNextAvailablePort(ctx, cli); err != nil {
			return nil, err
		}
	}

	reader, err := cli.ImagePull(ctx, opts.Image, types.ImagePullOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to pull image %s: %w", opts.Image, err)
	}
	_, _ = io.Copy(io.Discard, reader)
	reader.Close()

	labels := BuildLabels(opts.Name, ComponentRedis)
	labels[LabelRedisPort] = fmt.Sprintf("%d", port)

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  opts.Image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: fmt.Sprintf("%d", port),
				},
			},
		},
	}, nil, nil, RedisContainerName(opts.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	return &Info{
		Name:     opts.Name,
		Status:   StatusRunning,
		Port:     port,
		RedisURL: RedisURL(port),
	}, nil
}

// Down stops and removes every container of the named board. It returns the
// number of containers removed.
func Down(ctx context.Context, cli *client.Client, name string) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", LabelInstanceName, name))),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return 0, fmt.Errorf("board '%s' not found", name)
	}

	timeout := 10
	for _, c := range containers {
		_ = cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout})
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return 0, fmt.Errorf("failed to remove container %s: %w", c.ID, err)
		}
	}

	return len(containers), nil
}

// WaitReady polls ping until it succeeds or timeout elapses. Redis takes a
// moment to accept connections after its container starts.
func WaitReady(ctx context.Context, ping func(context.Context) error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("board not ready after %v: %w", timeout, lastErr)
		case <-ticker.C:
		}
	}
}
