package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quickmate/server/internal/v1/wire"
)

func TestBridgeReplicatesAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	busA, busB := NewBus(), NewBus()
	localA, remoteB := &recorder{}, &recorder{}
	busA.Attach("ca", localA)
	busB.Attach("cb", remoteB)

	bridgeA := NewBridge(clientA, busA)
	bridgeB := NewBridge(clientB, busB)
	defer bridgeA.Close()
	defer bridgeB.Close()

	// Give the subscribers a beat to come up.
	time.Sleep(50 * time.Millisecond)

	bridgeA.Publish(context.Background(), wire.ServerEvent{Event: wire.EventRoomListUpdated})

	require.Eventually(t, func() bool {
		return len(remoteB.names()) == 1
	}, 2*time.Second, 10*time.Millisecond, "remote instance should receive the catalog ping")

	// The origin instance must not re-deliver its own publication.
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, localA.names())
}
