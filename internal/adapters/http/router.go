// Package http is the local status and control surface of a running client.
package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/config"
	"github.com/dkeye/parley/internal/domain"
)

// Controller is the slice of the session loop the surface drives.
type Controller interface {
	Snapshot(ctx context.Context) (app.Snapshot, error)
	SelectConversation(id domain.ConversationID)
	SendText(content string)
}

type sendRequest struct {
	Content string `json:"content"`
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, ctl Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/session", func(c *gin.Context) {
		snap, err := ctl.Snapshot(c.Request.Context())
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("snapshot unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	api.POST("/conversations/:id/select", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
			return
		}
		ctl.SelectConversation(domain.ConversationID(id))
		log.Info().Str("module", "adapters.http").Int64("conversation", id).Msg("select requested")
		c.JSON(http.StatusAccepted, gin.H{"conversation_id": id})
	})

	api.POST("/messages", func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid content"})
			return
		}
		ctl.SendText(req.Content)
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
