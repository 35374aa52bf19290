package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/redis"
)

// DefaultChannel carries occupancy updates between API instances.
const DefaultChannel = "pf:realtime:parking_counts"

// PubSub is the Redis surface the broker needs.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (redis.Subscription, error)
}

// Broker fans occupancy updates out to every instance through Redis Pub/Sub. Each instance,
// including the publisher, receives the update from Redis and delivers it to its own hub.
type Broker struct {
	ps      PubSub
	channel string
	hub     *Hub
	logg    *logger.Logger
}

// NewBroker wires a broker for hub on channel.
func NewBroker(ps PubSub, channel string, hub *Hub, logg *logger.Logger) (*Broker, error) {
	if ps == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	if hub == nil {
		return nil, fmt.Errorf("realtime hub required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broker{ps: ps, channel: channel, hub: hub, logg: logg}, nil
}

// PublishCountUpdate sends the update to every instance. If Redis is unavailable the update
// still reaches this instance's clients and the error is returned.
func (b *Broker) PublishCountUpdate(ctx context.Context, update ParkingCountUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode count update")
	}
	if err := b.ps.Publish(ctx, b.channel, payload); err != nil {
		_ = b.hub.PublishCountUpdate(ctx, update)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish count update")
	}
	return nil
}

// Run subscribes to the channel and forwards updates to the hub until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) error {
	sub, err := b.ps.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	if b.logg != nil {
		b.logg.Info(b.logg.WithField(ctx, "channel", b.channel), "realtime.subscribed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-sub.Messages():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("subscription %s closed", b.channel)
			}
			b.forward(ctx, raw)
		}
	}
}

func (b *Broker) forward(ctx context.Context, raw []byte) {
	var update ParkingCountUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		if b.logg != nil {
			b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "realtime.decode_failed")
		}
		return
	}
	_ = b.hub.PublishCountUpdate(ctx, update)
}
