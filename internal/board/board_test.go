package board

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister returns canned containers and records the filters it was given.
type fakeLister struct {
	containers []types.Container
	err        error
	labels     [][]string
}

func (f *fakeLister) ContainerList(_ context.Context, options container.ListOptions) ([]types.Container, error) {
	f.labels = append(f.labels, options.Filters.Get("label"))
	return f.containers, f.err
}

func redisContainer(name, port, state string) types.Container {
	labels := BuildLabels(name, ComponentRedis)
	if port != "" {
		labels[LabelRedisPort] = port
	}
	return types.Container{ID: name + "-id", State: state, Labels: labels}
}

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("lab", ComponentRedis)
	assert.Equal(t, map[string]string{
		LabelProject:      "true",
		LabelInstanceName: "lab",
		LabelComponent:    "redis",
	}, labels)

	assert.NotContains(t, BuildLabels("lab", ""), LabelComponent)
	assert.Equal(t, "swarm-redis-lab", RedisContainerName("lab"))
}

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name      string
		inputName string
		errMsg    string
	}{
		{name: "simple", inputName: "prod"},
		{name: "hyphens", inputName: "staging-1"},
		{name: "single character", inputName: "a"},
		{name: "empty", inputName: "", errMsg: "cannot be empty"},
		{name: "uppercase", inputName: "Prod", errMsg: "must be lowercase"},
		{name: "leading hyphen", inputName: "-prod", errMsg: "not at start/end"},
		{name: "trailing hyphen", inputName: "prod-", errMsg: "not at start/end"},
		{name: "underscore", inputName: "my_board", errMsg: "must be lowercase"},
		{name: "too long", inputName: strings.Repeat("a", 64), errMsg: "too long"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.inputName)
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestFindNextAvailablePort(t *testing.T) {
	bindable := portBindable
	t.Cleanup(func() { portBindable = bindable })

	t.Run("skips labelled and unbindable ports", func(t *testing.T) {
		portBindable = func(port int) bool { return port != 6381 }
		lister := &fakeLister{containers: []types.Container{
			redisContainer("a", "6379", "running"),
			redisContainer("b", "6380", "exited"),
			redisContainer("c", "junk", "running"),
		}}

		port, err := FindNextAvailablePort(context.Background(), lister)
		require.NoError(t, err)
		assert.Equal(t, 6382, port)

		require.Len(t, lister.labels, 1)
		assert.ElementsMatch(t, []string{"swarm.board=true", "swarm.component=redis"}, lister.labels[0])
	})

	t.Run("range exhausted", func(t *testing.T) {
		portBindable = func(int) bool { return false }
		_, err := FindNextAvailablePort(context.Background(), &fakeLister{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "range 6379-6478 exhausted")
	})

	t.Run("docker failure", func(t *testing.T) {
		_, err := FindNextAvailablePort(context.Background(), &fakeLister{err: errors.New("daemon gone")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "daemon gone")
	})
}

func TestDetermineStatus(t *testing.T) {
	running := types.Container{State: "running"}
	exited := types.Container{State: "exited"}

	assert.Equal(t, StatusStopped, DetermineStatus(nil))
	assert.Equal(t, StatusRunning, DetermineStatus([]types.Container{running, running}))
	assert.Equal(t, StatusDegraded, DetermineStatus([]types.Container{running, exited}))
	assert.Equal(t, StatusStopped, DetermineStatus([]types.Container{exited}))
}

func TestListAndFind(t *testing.T) {
	lister := &fakeLister{containers: []types.Container{
		redisContainer("zeta", "6380", "exited"),
		redisContainer("alpha", "6379", "running"),
	}}

	infos, err := List(context.Background(), lister)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, StatusRunning, infos[0].Status)
	assert.Equal(t, 6379, infos[0].Port)
	assert.True(t, strings.HasSuffix(infos[0].RedisURL, ":6379"))
	assert.Equal(t, "zeta", infos[1].Name)
	assert.Equal(t, StatusStopped, infos[1].Status)

	info, err := Find(context.Background(), lister, "zeta")
	require.NoError(t, err)
	assert.Equal(t, 6380, info.Port)

	_, err = Find(context.Background(), lister, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board 'missing' not found")
}

func TestWaitReady(t *testing.T) {
	t.Run("returns once ping succeeds", func(t *testing.T) {
		calls := 0
		err := WaitReady(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out with the last error", func(t *testing.T) {
		err := WaitReady(context.Background(), func(context.Context) error {
			return errors.New("connection refused")
		}, 300*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "board not ready")
		assert.Contains(t, err.Error(), "connection refused")
	})
}
