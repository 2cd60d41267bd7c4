package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jorgedlr/listening-rooms/internal/chat"
	"github.com/jorgedlr/listening-rooms/internal/config"
	"github.com/jorgedlr/listening-rooms/internal/spotify"
	"github.com/jorgedlr/listening-rooms/internal/store"
)

// NewServer builds the HTTP server with all routes wired.
func NewServer(registry *chat.Registry, st store.Store, session *spotify.Session, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware(cfg.CORSOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"message": "Listening Rooms API is running"})
	})

	rooms := NewRoomHandlers(st, logger)
	api := router.Group("/api/rooms")
	{
		api.POST("/", rooms.CreateRoom)
		api.GET("/", rooms.ListRooms)
		api.GET("/:room_id", rooms.GetRoom)
		api.GET("/:room_id/messages", rooms.ListMessages)
	}

	ws := NewWSHandler(registry, st, logger)
	router.GET("/ws/rooms/:room_id", ws.Serve)

	sp := NewSpotifyHandlers(session, logger)
	router.GET("/auth/login", sp.Login)
	router.GET("/auth/callback", sp.Callback)
	router.GET("/auth/debug-token", sp.DebugToken)
	router.GET("/spotify/now-playing", sp.NowPlaying)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
