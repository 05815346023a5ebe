package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/swarm/pkg/grid"
)

// knowledgeBatch bounds the number of fields per HSET when storing knowledge.
const knowledgeBatch = 5000

// Client provides instance-scoped Redis operations for the blackboard.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new blackboard client for the specified instance.
// The client automatically namespaces all keys and channels with the instance name.
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client for instanceName.
func NewClientFromURL(redisURL, instanceName string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(opts, instanceName)
}

// InstanceName returns the namespace this client reads and writes.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CreateRun writes a new run record and publishes a run_started event.
func (c *Client) CreateRun(ctx context.Context, r *Run) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	key := RunKey(c.instanceName, r.ID)
	if err := c.rdb.HSet(ctx, key, RunToHash(r)).Err(); err != nil {
		return fmt.Errorf("failed to write run to Redis: %w", err)
	}

	return c.publish(ctx, &Event{Type: EventRunStarted, Run: r})
}

// UpdateRun replaces a run record (full HSET replacement). When the run has
// reached a terminal status a run_finished event is published.
func (c *Client) UpdateRun(ctx context.Context, r *Run) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	key := RunKey(c.instanceName, r.ID)
	if err := c.rdb.HSet(ctx, key, RunToHash(r)).Err(); err != nil {
		return fmt.Errorf("failed to update run in Redis: %w", err)
	}

	if r.Status.Terminal() {
		return c.publish(ctx, &Event{Type: EventRunFinished, Run: r})
	}
	return nil
}

// GetRun retrieves a run by ID.
// Returns (nil, redis.Nil) if the run doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	key := RunKey(c.instanceName, runID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	run, err := HashToRun(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}

	return run, nil
}

// RunExists checks if a run exists without fetching it.
func (c *Client) RunExists(ctx context.Context, runID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, RunKey(c.instanceName, runID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check run existence: %w", err)
	}
	return exists > 0, nil
}

// ScanRuns returns the IDs of every run whose ID starts with prefix. An empty
// prefix matches every run. Uses SCAN so large boards do not block Redis.
func (c *Client) ScanRuns(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := RunKey(c.instanceName, "")
	iter := c.rdb.Scan(ctx, 0, RunKeyPattern(c.instanceName, prefix), 0).Iterator()

	var ids []string
	seen := make(map[string]bool)
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), keyPrefix)
		// SCAN may return a key more than once
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}

	return ids, nil
}

// SaveRound stores a round snapshot, indexes it and publishes a round event.
func (c *Client) SaveRound(ctx context.Context, s *RoundSnapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid round snapshot: %w", err)
	}

	hash, err := RoundToHash(s)
	if err != nil {
		return fmt.Errorf("failed to serialize round: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, RoundKey(c.instanceName, s.RunID, s.Round), hash)
	pipe.ZAdd(ctx, RoundIndexKey(c.instanceName, s.RunID), redis.Z{
		Score:  RoundScore(s.Round),
		Member: s.Round,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write round to Redis: %w", err)
	}

	return c.publish(ctx, &Event{Type: EventRound, Round: s})
}

// GetRound retrieves one round snapshot.
// Returns (nil, redis.Nil) if the round was not stored.
func (c *Client) GetRound(ctx context.Context, runID string, round int) (*RoundSnapshot, error) {
	hashData, err := c.rdb.HGetAll(ctx, RoundKey(c.instanceName, runID, round)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read round from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	snapshot, err := HashToRound(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize round: %w", err)
	}
	return snapshot, nil
}

// RoundNumbers lists the stored rounds of a run in ascending order.
func (c *Client) RoundNumbers(ctx context.Context, runID string) ([]int, error) {
	results, err := c.rdb.ZRangeWithScores(ctx, RoundIndexKey(c.instanceName, runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read round index: %w", err)
	}

	rounds := make([]int, 0, len(results))
	for _, z := range results {
		rounds = append(rounds, RoundFromScore(z.Score))
	}
	return rounds, nil
}

// LatestRound retrieves the highest stored round of a run.
// Returns (nil, redis.Nil) if no rounds were stored.
func (c *Client) LatestRound(ctx context.Context, runID string) (*RoundSnapshot, error) {
	results, err := c.rdb.ZRevRangeWithScores(ctx, RoundIndexKey(c.instanceName, runID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	if len(results) == 0 {
		return nil, redis.Nil
	}
	return c.GetRound(ctx, runID, RoundFromScore(results[0].Score))
}

// SaveKnowledge replaces a run's stored combined knowledge.
func (c *Client) SaveKnowledge(ctx context.Context, runID string, k grid.Knowledge) error {
	key := KnowledgeKey(c.instanceName, runID)
	hash := KnowledgeToHash(k)

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	batch := make(map[string]interface{}, knowledgeBatch)
	for field, v := range hash {
		batch[field] = v
		if len(batch) == knowledgeBatch {
			pipe.HSet(ctx, key, batch)
			batch = make(map[string]interface{}, knowledgeBatch)
		}
	}
	if len(batch) > 0 {
		pipe.HSet(ctx, key, batch)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write knowledge to Redis: %w", err)
	}
	return nil
}

// GetKnowledge retrieves a run's stored combined knowledge.
// Returns (nil, redis.Nil) if none was stored.
func (c *Client) GetKnowledge(ctx context.Context, runID string) (grid.Knowledge, error) {
	hashData, err := c.rdb.HGetAll(ctx, KnowledgeKey(c.instanceName, runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	k, err := HashToKnowledge(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize knowledge: %w", err)
	}
	return k, nil
}

// DeleteRun removes a run record and everything stored under it.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	rounds, err := c.RoundNumbers(ctx, runID)
	if err != nil {
		return err
	}

	keys := []string{
		RunKey(c.instanceName, runID),
		RoundIndexKey(c.instanceName, runID),
		KnowledgeKey(c.instanceName, runID),
	}
	for _, r := range rounds {
		keys = append(keys, RoundKey(c.instanceName, runID, r))
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

func (c *Client) publish(ctx context.Context, e *Event) error {
	eventJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}

	if err := c.rdb.Publish(ctx, RunEventsChannel(c.instanceName), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to run events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of run events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures; the subscription continues
// after errors and the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeRunEvents subscribes to run and round events for this instance.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// The subscription is confirmed with Redis before this returns, so events
// published afterwards are not missed. Delivery is at-most-once: a subscriber
// that falls too far behind may lose events.
func (c *Client) SubscribeRunEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, RunEventsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to run events: %w", err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal run event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetRun, GetRound, LatestRound or GetKnowledge returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
