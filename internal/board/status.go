package board

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

// Status represents the health of a board
type Status string

const (
	// StatusRunning indicates all containers are running
	StatusRunning Status = "Running"

	// StatusDegraded indicates some containers are stopped
	StatusDegraded Status = "Degraded"

	// StatusStopped indicates the containers exist but are stopped
	StatusStopped Status = "Stopped"
)

// DetermineStatus analyzes a board's containers and determines its status.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusStopped
	}

	runningCount := 0
	for _, c := range containers {
		if c.State == "running" {
			runningCount++
		}
	}

	if runningCount == len(containers) {
		return StatusRunning
	} else if runningCount > 0 {
		return StatusDegraded
	}
	return StatusStopped
}

// Info describes one board
type Info struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Port     int    `json:"port"`
	RedisURL string `json:"redis_url"`
}

// List returns every board known to Docker, sorted by name.
func List(ctx context.Context, cli ContainerLister) ([]Info, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=true", LabelProject))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	byName := make(map[string][]types.Container)
	for _, c := range containers {
		name := c.Labels[LabelInstanceName]
		byName[name] = append(byName[name], c)
	}

	infos := make([]Info, 0, len(byName))
	for name, cs := range byName {
		info := Info{Name: name, Status: DetermineStatus(cs)}
		for _, c := range cs {
			if port, err := strconv.Atoi(c.Labels[LabelRedisPort]); err == nil {
				info.Port = port
				info.RedisURL = RedisURL(port)
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return strings.Compare(infos[i].Name, infos[j].Name) < 0
	})
	return infos, nil
}

// Find returns the board called name, or an error if there is none.
func Find(ctx context.Context, cli ContainerLister, name string) (*Info, error) {
	infos, err := List(ctx, cli)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Name == name {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("board '%s' not found", name)
}
