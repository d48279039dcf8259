// Package http is the local control surface the presentation layer
// talks to: state snapshots plus one endpoint per controller action.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/app"
	"github.com/meuser88/huddle/internal/config"
	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, ctrl *app.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("HuddleSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	api.POST("/join", func(c *gin.Context) {
		var req struct {
			Code string `json:"code"`
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid code"})
			return
		}
		err := ctrl.Join(c.Request.Context(), domain.AccessCode(req.Code), req.Name)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, ctrl.Snapshot())
		case errors.Is(err, core.ErrMeetingNotFound):
			// Fatal to join: the client is sent back to the lobby.
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found", "redirect": "/"})
		case errors.Is(err, app.ErrAlreadyJoined):
			c.JSON(http.StatusConflict, gin.H{"error": "already joined"})
		case errors.Is(err, core.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "device permission denied", "redirect": "/"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "join failed", "redirect": "/"})
		}
	})

	api.POST("/leave", func(c *gin.Context) {
		ctrl.Leave()
		c.JSON(http.StatusOK, gin.H{"redirect": "/"})
	})

	api.POST("/mute", func(c *gin.Context) {
		ctrl.ToggleMute()
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	api.POST("/camera", func(c *gin.Context) {
		ctrl.ToggleCamera()
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	api.POST("/screen", func(c *gin.Context) {
		if err := ctrl.ToggleScreenShare(c.Request.Context()); err != nil {
			// Non-fatal: the prior producer is still live.
			c.JSON(http.StatusConflict, gin.H{"error": "screen share failed"})
			return
		}
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	api.POST("/hand", func(c *gin.Context) {
		ctrl.ToggleHandRaise()
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	api.POST("/chat", func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
			return
		}
		if err := ctrl.SendChat(c.Request.Context(), req.Text); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "message not sent"})
			return
		}
		c.JSON(http.StatusOK, ctrl.Snapshot())
	})

	return r
}
