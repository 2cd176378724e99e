package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickmate/server/internal/v1/engine"
	"github.com/quickmate/server/internal/v1/room"
)

// RegisterAPI mounts the read-only REST surface: the public catalog,
// single-room lookups, and server stats.
func RegisterAPI(r gin.IRouter, eng *engine.Engine) {
	api := r.Group("/api")
	api.GET("/rooms/listings", func(c *gin.Context) {
		var filter engine.ListingFilter
		if state := c.Query("state"); state != "" {
			filter.State = room.State(state)
		}
		if v := c.Query("hasTimeControl"); v != "" {
			timed := v == "true"
			filter.HasTimeControl = &timed
		}
		c.JSON(http.StatusOK, gin.H{"rooms": eng.Listings(filter)})
	})

	api.GET("/rooms/:roomId", func(c *gin.Context) {
		snap, ok := eng.RoomSnapshot(c.Param("roomId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, eng.ServerStats())
	})
}
