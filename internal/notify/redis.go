// Package notify fans document-change events out over Redis pub/sub so
// every API instance re-anchors its in-memory controllers, not just the
// one that handled the write.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const channel = "marginalia:doc.changed"

// DocumentChanged is the payload published after a content update.
type DocumentChanged struct {
	DocumentID string    `json:"documentId"`
	Version    int       `json:"version"`
	ChangedAt  time.Time `json:"changedAt"`
}

// Bus is a Redis-backed publisher/subscriber for document changes. A
// nil *Bus is valid and does nothing, so single-instance deployments
// can run without Redis.
type Bus struct {
	client *redis.Client
}

// NewBus connects to Redis and verifies the connection.
func NewBus(redisURL string) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Bus{client: client}, nil
}

// NewBusWithClient wraps an existing client, used by tests.
func NewBusWithClient(client *redis.Client) *Bus {
	return &Bus{client: client}
}

// Close releases the Redis connection.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	return b.client.Close()
}

// PublishDocumentChanged broadcasts a change event. Publishing on a
// nil bus is a no-op.
func (b *Bus) PublishDocumentChanged(ctx context.Context, documentID string, version int) error {
	if b == nil {
		return nil
	}
	payload, err := json.Marshal(DocumentChanged{
		DocumentID: documentID,
		Version:    version,
		ChangedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe delivers change events to fn until ctx is cancelled.
// Malformed payloads are logged and skipped; delivery order follows
// publish order per Redis semantics.
func (b *Bus) Subscribe(ctx context.Context, fn func(DocumentChanged)) error {
	if b == nil {
		return nil
	}
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event DocumentChanged
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("notify: bad change payload: %v", err)
					continue
				}
				fn(event)
			}
		}
	}()
	return nil
}
