package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

// Relay bridges the fan-out across instances: committed events are published
// to a Redis channel and every instance's subscribe loop feeds its local hub.
type Relay struct {
	rc      *redis.Client
	channel string
	hub     *Hub
	logger  *log.Logger
}

// NewRelay creates a relay for the given pub/sub channel.
func NewRelay(rc *redis.Client, channel string, hub *Hub, logger *log.Logger) *Relay {
	return &Relay{rc: rc, channel: channel, hub: hub, logger: logger}
}

// Broadcast publishes a committed change event. Delivery to session channels
// happens asynchronously on whichever instances hold the subscribers.
func (r *Relay) Broadcast(ctx context.Context, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rc.Publish(ctx, r.channel, data).Err()
}

// Run consumes the pub/sub channel and feeds the local hub until the context
// is cancelled, reconnecting when the subscription drops.
func (r *Relay) Run(ctx context.Context) {
	for {
		sub := r.rc.Subscribe(ctx, r.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.logger.Errorf("unable to parse change event: %v", err)
					continue
				}
				r.hub.Publish(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
