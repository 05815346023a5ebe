package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/swarm/internal/board"
	"github.com/dyluth/swarm/internal/config"
	"github.com/dyluth/swarm/internal/printer"
	"github.com/dyluth/swarm/pkg/blackboard"
)

// target names the blackboard a command reads from.
type target struct {
	name     string
	redisURL string
}

func (t *target) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.name, "name", "n", "", "Board instance name (default: blackboard.instance from swarm.yml, else 'default')")
	cmd.Flags().StringVar(&t.redisURL, "redis-url", "", "Connect to this Redis directly instead of looking up the board")
}

// resolve fills in whatever the flags left open. An explicit --name is looked
// up through Docker; otherwise swarm.yml supplies both name and URL when it
// can be loaded.
func (t *target) resolve(ctx context.Context) (string, string, error) {
	name, redisURL := t.name, t.redisURL

	if name == "" && redisURL == "" {
		if cfg, err := config.Load(configPath); err == nil {
			return cfg.Blackboard.Instance, cfg.Blackboard.RedisURL, nil
		}
	}
	if name == "" {
		name = "default"
	}
	if redisURL != "" {
		return name, redisURL, nil
	}

	cli, err := board.NewDockerClient(ctx)
	if err != nil {
		return "", "", err
	}
	defer cli.Close()

	info, err := board.Find(ctx, cli, name)
	if err != nil {
		return "", "", printer.Error(
			fmt.Sprintf("board '%s' not found", name),
			"No board container with that name exists.",
			[]string{
				fmt.Sprintf("Start one:\n  swarm board up --name %s", name),
				"Or connect directly:\n  --redis-url redis://host:port",
			},
		)
	}
	if info.Status != board.StatusRunning {
		return "", "", printer.Error(
			fmt.Sprintf("board '%s' is not running", name),
			fmt.Sprintf("Status: %s", info.Status),
			[]string{fmt.Sprintf("Restart the board:\n  swarm board down --name %s\n  swarm board up --name %s", name, name)},
		)
	}
	return name, info.RedisURL, nil
}

// connect opens and pings the target blackboard.
func (t *target) connect(ctx context.Context) (*blackboard.Client, error) {
	name, redisURL, err := t.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return dialBlackboard(ctx, name, redisURL)
}

func dialBlackboard(ctx context.Context, name, redisURL string) (*blackboard.Client, error) {
	client, err := blackboard.NewClientFromURL(redisURL, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create blackboard client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", redisURL),
			map[string]string{"Instance": name, "Error": err.Error()},
			[]string{
				fmt.Sprintf("Start a board:\n  swarm board up --name %s", name),
				fmt.Sprintf("Check the board container:\n  docker logs %s", board.RedisContainerName(name)),
			},
		)
	}
	return client, nil
}
