// Package httpapi exposes the HTTP surface: health, a small room admin
// API, and the websocket upgrade endpoint.
package httpapi

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"huddle/internal/config"
	"huddle/internal/core"
	"huddle/internal/transport/ws"
)

// NewServer builds the HTTP server with all routes mounted.
func NewServer(srv *core.Server, hub *ws.Hub, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.GET("/ws", gin.WrapH(ws.NewHandler(hub, srv, logger)))

	h := &roomHandlers{srv: srv, log: logger}
	api := router.Group("/api")
	{
		api.POST("/rooms", h.createRoom)
		api.GET("/rooms/:name", h.getRoom)
		api.GET("/rooms/:name/members", h.getRoomMembers)
		api.GET("/stats", h.stats)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
