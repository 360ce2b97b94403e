// Package apiserver is the HTTP shell around driver.RunTurn: request
// parsing, JWT authentication, and response encoding. None of this is part
// of the core's contract (spec §1 explicitly excludes authN/authZ from the
// core) — it exists only so cmd/plannerd can expose the planner over HTTP.
package apiserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/beefkknd/deterministic-planner/internal/driver"
	"github.com/beefkknd/deterministic-planner/internal/memory"
	"github.com/beefkknd/deterministic-planner/internal/session"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
)

// Server wires the turn driver and its session/memory collaborators behind
// a gin router.
type Server struct {
	driver    *driver.Driver
	sessions  session.Store
	memory    memory.Store
	jwtSecret []byte
	logger    telemetry.Logger

	router *gin.Engine
}

// New constructs a Server. When jwtSecret is empty, authentication is
// disabled — every request is treated as already authenticated. This is the
// demo-mode default; production deployments must set PLANNER_JWT_SECRET.
func New(drv *driver.Driver, sessions session.Store, mem memory.Store, jwtSecret string, logger telemetry.Logger, metricsHandler http.Handler) *Server {
	s := &Server{driver: drv, sessions: sessions, memory: mem, jwtSecret: []byte(jwtSecret), logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	turns := router.Group("/sessions/:session_id/turns")
	if jwtSecret != "" {
		turns.Use(s.requireJWT)
	}
	turns.POST("", s.handleRunTurn)

	s.router = router
	return s
}

// Handler returns the assembled gin.Engine for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

type runTurnRequest struct {
	Question  string `json:"question" binding:"required"`
	MaxRounds int    `json:"max_rounds"`
}

type runTurnResponse struct {
	Status        state.StatusLabel    `json:"status"`
	FinalResponse string               `json:"final_response"`
	NewArtifacts  []state.KeyArtifact  `json:"new_artifacts"`
}

func (s *Server) handleRunTurn(c *gin.Context) {
	sessionID := c.Param("session_id")
	ctx := c.Request.Context()

	var req runTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.sessions.CreateSession(ctx, sessionID, time.Now().UTC()); err != nil {
		if err == session.ErrSessionEnded {
			c.JSON(http.StatusConflict, gin.H{"error": "session has ended"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history, err := s.memory.History(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	turnID := len(history) + 1
	result, err := s.driver.RunTurn(ctx, sessionID, turnID, req.Question, history, req.MaxRounds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.memory.Append(ctx, sessionID, state.TurnSummary{
		TurnID:       turnID,
		HumanMessage: req.Question,
		AIResponse:   result.FinalResponse,
		KeyArtifacts: result.NewArtifacts,
	}); err != nil {
		s.logger.Warn(ctx, "apiserver: failed to append turn to memory", "error", err.Error())
	}

	c.JSON(http.StatusOK, runTurnResponse{
		Status:        result.Status,
		FinalResponse: result.FinalResponse,
		NewArtifacts:  result.NewArtifacts,
	})
}

// requireJWT validates a bearer token signed with s.jwtSecret. This is the
// entirety of plannerd's authentication: no claims are inspected beyond
// validity, since authorization policy is out of the core's scope.
func (s *Server) requireJWT(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	raw := header[len(prefix):]

	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Next()
}
