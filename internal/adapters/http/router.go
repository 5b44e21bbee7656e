package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/Pair/internal/adapters/signal"
	"github.com/dkeye/Pair/internal/config"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "PairSessions"

// ClientTokenMiddleware gives every browser a stable token kept in the
// session cookie. It keys room-creation throttling.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(signal.ClientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			sess.Set(signal.ClientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

type Deps struct {
	Signal *signal.SignalWSController
	// SocketIO is mounted under /socket.io/ when set.
	SocketIO http.Handler
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	h := deps.Signal.Handler
	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339Nano)})
	})

	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.Orch.Stats())
	})

	api.POST("/rooms", func(c *gin.Context) {
		id, err := h.CreateRoom(c.GetString(signal.ClientTokenKey))
		switch {
		case errors.Is(err, signal.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create room"})
		default:
			c.JSON(http.StatusCreated, gin.H{"success": true, "roomId": id, "message": "Room created successfully"})
		}
	})

	api.GET("/rooms/:roomId", func(c *gin.Context) {
		info, ok := h.Orch.Lookup(domain.NormalizeRoomID(c.Param("roomId")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": domain.ErrRoomNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "room": info})
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		deps.Signal.HandleSignal(ctx, c)
	})

	if deps.SocketIO != nil {
		r.Any("/socket.io/*any", gin.WrapH(deps.SocketIO))
	}

	log.Info().Str("module", "adapters.http").Bool("socketio", deps.SocketIO != nil).Msg("router setup")
	return r
}
