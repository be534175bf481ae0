package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for decision logs.
// All keys and channels are automatically namespaced with the instance
// name. The client is thread-safe and can be used concurrently from
// multiple goroutines; Append is the only write path in the engine.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new journal client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Easel instance identifier (must not be empty)
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

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Append records one event at the tail of its plan's decision log and
// publishes it to the plan's event channel. Fills in ID and CreatedAtMs
// if the caller left them zero, then validates before writing.
//
// RPUSH is atomic, so concurrent appenders interleave without losing
// entries; each plan's log remains a strict append-only sequence.
func (c *Client) Append(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAtMs == 0 {
		event.CreatedAtMs = time.Now().UnixMilli()
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	key := PlanEventsKey(c.instanceName, event.PlanID)
	if err := c.rdb.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to append event to Redis: %w", err)
	}

	if err := c.rdb.SAdd(ctx, PlanIndexKey(c.instanceName), event.PlanID).Err(); err != nil {
		return fmt.Errorf("failed to index plan: %w", err)
	}

	channel := PlanEventsChannel(c.instanceName, event.PlanID)
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// List retrieves a plan's full decision log in append order.
// Returns (nil, redis.Nil) if no events were ever recorded for the plan.
// Use IsNotFound() to check for not-found errors.
func (c *Client) List(ctx context.Context, planID string) ([]*Event, error) {
	key := PlanEventsKey(c.instanceName, planID)

	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read decision log from Redis: %w", err)
	}

	if len(raw) == 0 {
		return nil, redis.Nil
	}

	events := make([]*Event, 0, len(raw))
	for i, payload := range raw {
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to deserialize event at position %d: %w", i, err)
		}
		events = append(events, &event)
	}

	return events, nil
}

// ListPlans returns the IDs of all plans with recorded events.
func (c *Client) ListPlans(ctx context.Context) ([]string, error) {
	planIDs, err := c.rdb.SMembers(ctx, PlanIndexKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return planIDs, nil
}

// Subscription represents an active Pub/Sub subscription to a plan's
// event stream. Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of journal events.
// The channel is closed when the subscription is closed or the context
// is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to a plan's live event stream.
// Returns a Subscription that delivers full event objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent
// blocking. Redis Pub/Sub is at-most-once: a slow subscriber may miss
// events, but List() always returns the complete log.
func (c *Client) Subscribe(ctx context.Context, planID string) (*Subscription, error) {
	channel := PlanEventsChannel(c.instanceName, planID)
	pubsub := c.rdb.Subscribe(ctx, channel)

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
					case errorsChan <- fmt.Errorf("failed to unmarshal journal event: %w", err):
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

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if List returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
