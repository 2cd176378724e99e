package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmate/server/internal/v1/engine"
	"github.com/quickmate/server/internal/v1/events"
	"github.com/quickmate/server/internal/v1/session"
	"github.com/quickmate/server/internal/v1/store"
	"github.com/quickmate/server/internal/v1/wire"
)

func newAPIFixture(t *testing.T) (*gin.Engine, *engine.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewBus()
	eng := engine.New(store.New(nil), session.NewRegistry(session.DefaultGrace), bus)
	router := gin.New()
	RegisterAPI(router, eng)

	ctx := context.Background()
	host := engine.Caller{Identity: "alice", ConnID: "conn-alice"}
	eng.Connected(host)
	res, err := eng.CreateRoom(ctx, host, wire.CreateRoomPayload{
		PlayerName: "Alice",
		Settings:   &wire.RoomSettings{TimeControl: &wire.TimeControl{Initial: 300, Increment: 2}},
	})
	require.NoError(t, err)
	return router, eng, res.RoomID
}

func doGET(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestListingsEndpoint(t *testing.T) {
	router, _, roomID := newAPIFixture(t)

	w := doGET(t, router, "/api/rooms/listings")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Rooms []map[string]any `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, roomID, body.Rooms[0]["roomId"])
	assert.Equal(t, "Alice", body.Rooms[0]["hostName"])

	// Filters.
	w = doGET(t, router, "/api/rooms/listings?state=in_progress")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Rooms)

	w = doGET(t, router, "/api/rooms/listings?hasTimeControl=false")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Rooms)

	w = doGET(t, router, "/api/rooms/listings?hasTimeControl=true")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Rooms, 1)
}

func TestRoomEndpoint(t *testing.T) {
	router, _, roomID := newAPIFixture(t)

	w := doGET(t, router, "/api/rooms/"+roomID)
	require.Equal(t, http.StatusOK, w.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, roomID, snap["roomId"])
	assert.Equal(t, "waiting_for_player", snap["state"])

	w = doGET(t, router, "/api/rooms/nosuch")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	router, _, _ := newAPIFixture(t)

	w := doGET(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Rooms            map[string]int `json:"rooms"`
		ConnectedPlayers int            `json:"connectedPlayers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Rooms["waiting_for_player"])
	assert.Equal(t, 1, stats.ConnectedPlayers)
}
