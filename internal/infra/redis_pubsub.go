package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"lms.com/internal/constants"
	"lms.com/internal/event"
)

// RedisEventForwarder publishes bus events to the Redis events channel so that
// every instance (and any external consumer) sees them.
func RedisEventForwarder(rdb *redis.Client) event.Handler {
	return func(ctx context.Context, e event.Event) error {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if err := rdb.Publish(ctx, constants.RedisPubSubEvents, data).Err(); err != nil {
			return fmt.Errorf("failed to publish event to redis: %w", err)
		}
		return nil
	}
}

// StartEventSubscriber listens on the Redis events channel and hands each decoded
// event to handle. It returns once the subscription is confirmed; the receive
// loop runs until ctx is cancelled.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, handle func(event.Event)) error {
	pubsub := rdb.Subscribe(ctx, constants.RedisPubSubEvents)

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", constants.RedisPubSubEvents, err)
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Println("EventSubscriber: Started Redis event subscriber loop")
		for {
			select {
			case <-ctx.Done():
				log.Println("EventSubscriber: Stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e event.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					log.Printf("EventSubscriber: Dropping malformed event: %v", err)
					continue
				}
				handle(e)
			}
		}
	}()
	return nil
}
