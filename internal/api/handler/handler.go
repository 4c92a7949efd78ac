package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 3 * time.Second

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChatCounter reports the random chat load.
type ChatCounter interface {
	Counts() (queued, pairs int)
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	DB   Pinger
	Chat ChatCounter
	log  *slog.Logger
}

func NewHandler(db Pinger, chat ChatCounter, log *slog.Logger) *Handler {
	return &Handler{DB: db, Chat: chat, log: log}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", h.Alive)
	r.GET("/healthz", h.Health)
	return r
}

// Alive answers external supervisors.
func (h *Handler) Alive(c *gin.Context) {
	c.String(http.StatusOK, "I'm alive!")
}

// Health pings the database and reports the random chat load.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		h.log.Warn("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}

	body := gin.H{"status": "ok"}
	if h.Chat != nil {
		queued, pairs := h.Chat.Counts()
		body["queued"] = queued
		body["pairs"] = pairs
	}
	c.JSON(http.StatusOK, body)
}
