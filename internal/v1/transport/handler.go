package transport

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/auth"
	"github.com/quickmate/server/internal/v1/engine"
	"github.com/quickmate/server/internal/v1/events"
	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/metrics"
)

const handshakeTimeout = 20 * time.Second

// Handler upgrades websocket connections and runs their lifecycle.
type Handler struct {
	engine   *engine.Engine
	bus      *events.Bus
	resolver *auth.Resolver
	upgrader websocket.Upgrader
}

// NewHandler wires the websocket endpoint. allowedOrigins is the CORS
// allow-list reused for the upgrade origin check.
func NewHandler(eng *engine.Engine, bus *events.Bus, resolver *auth.Resolver, allowedOrigins []string) *Handler {
	return &Handler{
		engine:   eng,
		bus:      bus,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: handshakeTimeout,
			CheckOrigin:      auth.OriginChecker(allowedOrigins),
		},
	}
}

// ServeWS is the gin handler for GET /ws. Credentials ride the query
// string: an access token, a guest id, or nothing at all. Auth never
// rejects the upgrade; it only decides how strong the identity is.
func (h *Handler) ServeWS(c *gin.Context) {
	connID := uuid.NewString()
	identity := h.resolver.Resolve(c.Request.Context(),
		c.Query("token"), c.Query("guestId"), connID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	caller := engine.Caller{
		Identity: identity.Key(),
		ConnID:   connID,
		Name:     identity.Name,
	}
	client := newClient(conn, h.engine, caller, identity.Reconnectable())

	ctx := context.WithValue(context.Background(), logging.ConnectionIDKey, connID)
	ctx = context.WithValue(ctx, logging.IdentityKey, caller.Identity)

	h.bus.Attach(connID, client)
	h.engine.Connected(caller)
	metrics.ActiveConnections.Inc()
	logging.Info(ctx, "client connected", zap.String("kind", string(identity.Kind)))

	go client.writePump()
	client.readPump(ctx)

	h.bus.Detach(connID)
	h.engine.Disconnected(ctx, caller, client.reconnectable)
	metrics.ActiveConnections.Dec()
	logging.Info(ctx, "client disconnected")
}
