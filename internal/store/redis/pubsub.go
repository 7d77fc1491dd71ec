package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event types carried on the assets channel.
const (
	EventRebuilt = "rebuilt"
	EventChanged = "changed"
)

// AssetEvent announces new build output or a changed source file.
type AssetEvent struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
	Path string    `json:"path,omitempty"`
	At   time.Time `json:"at"`
}

// NewAssetEvent stamps an event with a fresh id and the current time.
func NewAssetEvent(typ, path string) AssetEvent {
	return AssetEvent{ID: uuid.New(), Type: typ, Path: path, At: time.Now().UTC()}
}

// Marshal encodes the event for publishing.
func (e AssetEvent) Marshal() []byte {
	data, _ := json.Marshal(e) //nolint:errchkjson // plain struct, cannot fail
	return data
}

// ParseAssetEvent decodes a published event.
func ParseAssetEvent(data []byte) (AssetEvent, error) {
	var e AssetEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return AssetEvent{}, fmt.Errorf("redis.ParseAssetEvent: %w", err)
	}
	return e, nil
}

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// PublishAsset publishes e on the assets channel for base.
func (ps *PubSub) PublishAsset(ctx context.Context, base string, e AssetEvent) error {
	return ps.Publish(ctx, AssetsChannel(base), e.Marshal())
}

// Subscribe delivers channel payloads until ctx is done. The returned
// cleanup closes the subscription.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// AssetsChannel returns the Redis channel for asset events of the frontend
// served under base. Separate deployments sharing one Redis keep separate
// base paths.
func AssetsChannel(base string) string {
	return "assets:" + base
}
