package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/swarm/internal/agent"
	"github.com/dyluth/swarm/internal/board"
	"github.com/dyluth/swarm/internal/simulator"
	"github.com/dyluth/swarm/pkg/grid"
)

// DefaultPath is where commands look for configuration when --config is not given.
const DefaultPath = "swarm.yml"

// SwarmConfig represents the top-level swarm.yml configuration
type SwarmConfig struct {
	Version    string            `yaml:"version"`
	Map        MapConfig         `yaml:"map"`
	Swarm      *TeamConfig       `yaml:"swarm,omitempty"`
	Frontier   *FrontierConfig   `yaml:"frontier,omitempty"`
	Policy     *PolicyConfig     `yaml:"policy,omitempty"`
	Scheduler  *SchedulerConfig  `yaml:"scheduler,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
	Blackboard *BlackboardConfig `yaml:"blackboard,omitempty"`
	Output     *OutputConfig     `yaml:"output,omitempty"`
}

// MapConfig locates the ground-truth map and the cell every agent starts on
type MapConfig struct {
	Path  string     `yaml:"path"`
	Start *grid.Cell `yaml:"start,omitempty"` // Falls back to the map's 'S' marker
}

// TeamConfig describes the agents and how they communicate
type TeamConfig struct {
	Agents          *int    `yaml:"agents,omitempty"`
	SightRadius     *int    `yaml:"sight_radius,omitempty"`
	BroadcastRadius float64 `yaml:"broadcast_radius,omitempty"` // Default: 2 x sight_radius
	LineOfSight     bool    `yaml:"line_of_sight,omitempty"`
	Knowledge       string  `yaml:"knowledge,omitempty"` // "local" or "global"
	Drops           bool    `yaml:"drops,omitempty"`
}

// FrontierConfig bounds the cost of each frontier search
type FrontierConfig struct {
	SoftCap          *int `yaml:"soft_cap,omitempty"`
	StagnationCutoff *int `yaml:"stagnation_cutoff,omitempty"`
}

// PolicyConfig tunes how agents rank frontier candidates
type PolicyConfig struct {
	Scoring    string `yaml:"scoring,omitempty"`     // frontier, nearest or discovery
	RandomBest *int   `yaml:"random_best,omitempty"` // Pick uniformly among the best N
	Seed       int64  `yaml:"seed,omitempty"`
}

// SchedulerConfig controls round execution
type SchedulerConfig struct {
	TurnTimeout time.Duration `yaml:"turn_timeout,omitempty"`
	MaxRounds   int           `yaml:"max_rounds,omitempty"` // 0 = unlimited
	Workers     int           `yaml:"workers,omitempty"`    // 0 = one goroutine per agent
}

// LoggingConfig selects log verbosity and encoding
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "text" or "json"
}

// BlackboardConfig enables recording runs to Redis
type BlackboardConfig struct {
	Enabled  bool   `yaml:"enabled"`
	RedisURL string `yaml:"redis_url,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// OutputConfig controls files written at the end of a run
type OutputConfig struct {
	Render        string `yaml:"render,omitempty"`         // PNG path for the final map
	SnapshotEvery int    `yaml:"snapshot_every,omitempty"` // Rounds between blackboard snapshots, 0 = only the last
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *SwarmConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Map.Path == "" {
		return fmt.Errorf("map.path is required")
	}

	if c.Swarm == nil {
		c.Swarm = &TeamConfig{}
	}
	if err := c.Swarm.validate(); err != nil {
		return err
	}

	if c.Frontier == nil {
		c.Frontier = &FrontierConfig{}
	}
	if c.Frontier.SoftCap == nil {
		c.Frontier.SoftCap = intPtr(200)
	}
	if c.Frontier.StagnationCutoff == nil {
		c.Frontier.StagnationCutoff = intPtr(50)
	}
	if *c.Frontier.SoftCap < 1 {
		return fmt.Errorf("frontier.soft_cap must be >= 1, got %d", *c.Frontier.SoftCap)
	}
	if *c.Frontier.StagnationCutoff < 1 {
		return fmt.Errorf("frontier.stagnation_cutoff must be >= 1, got %d", *c.Frontier.StagnationCutoff)
	}

	if c.Policy == nil {
		c.Policy = &PolicyConfig{}
	}
	scoring, err := agent.ParseScoring(c.Policy.Scoring)
	if err != nil {
		return fmt.Errorf("policy.scoring: %w", err)
	}
	c.Policy.Scoring = string(scoring)
	if c.Policy.RandomBest == nil {
		c.Policy.RandomBest = intPtr(1)
	}
	if *c.Policy.RandomBest < 1 {
		return fmt.Errorf("policy.random_best must be >= 1, got %d", *c.Policy.RandomBest)
	}

	if c.Scheduler == nil {
		c.Scheduler = &SchedulerConfig{}
	}
	if c.Scheduler.TurnTimeout == 0 {
		c.Scheduler.TurnTimeout = 2 * time.Minute
	}
	if c.Scheduler.TurnTimeout < 0 || c.Scheduler.MaxRounds < 0 || c.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler values must not be negative")
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format: %s (must be 'text' or 'json')", c.Logging.Format)
	}

	if c.Blackboard == nil {
		c.Blackboard = &BlackboardConfig{}
	}
	if c.Blackboard.RedisURL == "" {
		c.Blackboard.RedisURL = "redis://localhost:6379"
	}
	if c.Blackboard.Instance == "" {
		c.Blackboard.Instance = "default"
	}
	if err := board.ValidateName(c.Blackboard.Instance); err != nil {
		return fmt.Errorf("invalid blackboard.instance: %w", err)
	}

	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.SnapshotEvery < 0 {
		return fmt.Errorf("output.snapshot_every must be >= 0, got %d", c.Output.SnapshotEvery)
	}

	return nil
}

func (t *TeamConfig) validate() error {
	if t.Agents == nil {
		t.Agents = intPtr(5)
	}
	if *t.Agents < 1 {
		return fmt.Errorf("swarm.agents must be >= 1, got %d", *t.Agents)
	}

	if t.SightRadius == nil {
		t.SightRadius = intPtr(20)
	}
	if *t.SightRadius < 1 {
		return fmt.Errorf("swarm.sight_radius must be >= 1, got %d", *t.SightRadius)
	}

	if t.BroadcastRadius == 0 {
		t.BroadcastRadius = float64(2 * *t.SightRadius)
	}
	if t.BroadcastRadius < 0 {
		return fmt.Errorf("swarm.broadcast_radius must be positive, got %v", t.BroadcastRadius)
	}

	if t.Knowledge == "" {
		t.Knowledge = string(simulator.SharingLocal)
	}
	if t.Knowledge != string(simulator.SharingLocal) && t.Knowledge != string(simulator.SharingGlobal) {
		return fmt.Errorf("invalid swarm.knowledge: %s (must be 'local' or 'global')", t.Knowledge)
	}
	if t.Knowledge == string(simulator.SharingGlobal) && t.Drops {
		return fmt.Errorf("swarm.drops requires local knowledge sharing")
	}

	return nil
}

// Simulation converts a validated configuration into simulator settings.
// start is the resolved start cell.
func (c *SwarmConfig) Simulation(start grid.Cell) simulator.Config {
	return simulator.Config{
		Agents:           *c.Swarm.Agents,
		Start:            start,
		SightRadius:      *c.Swarm.SightRadius,
		BroadcastRadius:  c.Swarm.BroadcastRadius,
		LineOfSight:      c.Swarm.LineOfSight,
		Sharing:          simulator.Sharing(c.Swarm.Knowledge),
		Drops:            c.Swarm.Drops,
		SoftCap:          *c.Frontier.SoftCap,
		StagnationCutoff: *c.Frontier.StagnationCutoff,
		Scoring:          agent.Scoring(c.Policy.Scoring),
		RandomBest:       *c.Policy.RandomBest,
		Seed:             c.Policy.Seed,
		TurnTimeout:      c.Scheduler.TurnTimeout,
		Workers:          c.Scheduler.Workers,
		MaxRounds:        c.Scheduler.MaxRounds,
	}
}

// NewLogger builds a logger writing to w at the configured level and format.
func (l *LoggingConfig) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyTime: "timestamp"},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// Load reads and validates swarm.yml from the specified path
func Load(path string) (*SwarmConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config SwarmConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func intPtr(v int) *int {
	return &v
}
