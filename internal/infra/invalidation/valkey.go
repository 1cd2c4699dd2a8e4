package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
)

const defaultChannel = "points-dashboard:invalidate"

// ValkeyBus fans invalidations out over Valkey pub/sub so every replica
// holding the same session drops its copy.
type ValkeyBus struct {
	client       valkey.Client
	channel      string
	logger       *slog.Logger
	retryBackoff time.Duration
}

// NewValkeyBus constructs a Valkey-backed bus on channel.
func NewValkeyBus(client valkey.Client, channel string, logger *slog.Logger) *ValkeyBus {
	if channel == "" {
		channel = defaultChannel
	}
	return &ValkeyBus{
		client:       client,
		channel:      channel,
		logger:       logger.With("component", "invalidation.valkey"),
		retryBackoff: time.Second,
	}
}

func (b *ValkeyBus) Publish(ctx context.Context, msg dashboard.Invalidation) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	cmd := b.client.B().Publish().Channel(b.channel).Message(string(payload)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and resubscribes after connection loss.
func (b *ValkeyBus) Listen(ctx context.Context, fn Handler) error {
	for {
		err := b.client.Receive(ctx, b.client.B().Subscribe().Channel(b.channel).Build(), func(m valkey.PubSubMessage) {
			msg, ok := decode(m.Message)
			if !ok {
				b.logger.Warn("invalidation payload dropped", "channel", m.Channel)
				return
			}
			fn(msg)
		})
		if ctx.Err() != nil {
			return nil
		}
		b.logger.Warn("invalidation subscription lost", "channel", b.channel, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retryBackoff):
		}
	}
}

func decode(payload string) (dashboard.Invalidation, bool) {
	var msg dashboard.Invalidation
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return dashboard.Invalidation{}, false
	}
	if msg.SessionKey == "" {
		return dashboard.Invalidation{}, false
	}
	return msg, true
}

var _ Bus = (*ValkeyBus)(nil)
