package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/wire"
)

const bridgeChannel = "chess:events"

type bridgeFrame struct {
	Origin string           `json:"origin"`
	Event  wire.ServerEvent `json:"event"`
}

// Bridge replicates server-wide events across processes over Redis
// pub/sub, so catalog pings reach clients connected to other instances.
// Room fan-out stays local: a room lives on exactly one instance.
type Bridge struct {
	id     string
	client redis.UniversalClient
	bus    *Bus
	cancel context.CancelFunc
}

// NewBridge starts the subscriber loop. Call Close to stop it.
func NewBridge(client redis.UniversalClient, bus *Bus) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		id:     uuid.NewString(),
		client: client,
		bus:    bus,
		cancel: cancel,
	}
	go b.listen(ctx)
	return b
}

// Publish sends a server-wide event to the other instances.
func (b *Bridge) Publish(ctx context.Context, ev wire.ServerEvent) {
	payload, err := json.Marshal(bridgeFrame{Origin: b.id, Event: ev})
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, bridgeChannel, payload).Err(); err != nil {
		logging.Debug(ctx, "event bridge publish failed", zap.Error(err))
	}
}

func (b *Bridge) listen(ctx context.Context) {
	sub := b.client.Subscribe(ctx, bridgeChannel)
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
			var frame bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				continue
			}
			if frame.Origin == b.id {
				continue
			}
			b.bus.BroadcastAll(frame.Event)
		}
	}
}

// Close stops the subscriber loop.
func (b *Bridge) Close() { b.cancel() }
