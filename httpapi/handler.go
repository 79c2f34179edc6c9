// Package httpapi exposes booth sessions over HTTP with gin.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kydenul/spinwheel"
)

// HealthReporter reports store health, e.g. *spinwheel.BreakerStore
type HealthReporter interface {
	HealthCheck() map[string]any
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	booth    *spinwheel.Booth
	sessions *SessionRegistry
	health   HealthReporter
	logger   spinwheel.Logger
}

// NewHandler creates a new Handler. health may be nil.
func NewHandler(booth *spinwheel.Booth, sessions *SessionRegistry, health HealthReporter, logger spinwheel.Logger) *Handler {
	if sessions == nil {
		sessions = NewSessionRegistry(spinwheel.DefaultSessionTTL)
	}
	if logger == nil {
		logger = spinwheel.NewSilentLogger()
	}
	return &Handler{
		booth:    booth,
		sessions: sessions,
		health:   health,
		logger:   logger,
	}
}

// RegisterRoutes registers all the application routes.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.GET("/rewards", h.ListRewards)
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.POST("/sessions/:id/start", h.StartSession)
	api.POST("/sessions/:id/lead", h.SubmitLead)
	api.POST("/sessions/:id/spin", h.Spin)
}

// ListRewards returns the wheel layout.
func (h *Handler) ListRewards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sectors": h.booth.Sectors()})
}

// CreateSession starts a new session in the landing state.
func (h *Handler) CreateSession(c *gin.Context) {
	s := h.booth.NewSession()
	h.sessions.Put(s)
	c.JSON(http.StatusCreated, s.View())
}

// GetSession returns the session view.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// StartSession moves the session to the form.
func (h *Handler) StartSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Start(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// SubmitLead registers the visitor. The response view either is in the spin
// state or reports already_played with the prior reward.
func (h *Handler) SubmitLead(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var lead spinwheel.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		abortWithError(c, spinwheel.ErrValidationFailure.WithDetails("malformed request body").WithCause(err))
		return
	}
	if err := s.Submit(c.Request.Context(), &lead); err != nil {
		if statusOf(err) >= http.StatusInternalServerError {
			h.logger.Error("Session %s: submit failed: %v", s.ID(), err)
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// Spin starts the animation and returns the spin plan.
func (h *Handler) Spin(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	plan, err := s.BeginSpin(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reward":          plan.Reward,
		"index":           plan.Index,
		"extra_turns":     plan.ExtraTurns,
		"target_rotation": plan.TargetRotation,
		"duration_ms":     plan.Duration.Milliseconds(),
	})
}

// Health reports store health and ledger metrics.
func (h *Handler) Health(c *gin.Context) {
	metrics := h.booth.Ledger().Monitor().GetMetrics()
	body := gin.H{
		"status":    "ok",
		"sessions":  h.sessions.Len(),
		"ledger":    metrics,
		"timestamp": time.Now().Unix(),
	}

	status := http.StatusOK
	if h.health != nil {
		store := h.health.HealthCheck()
		body["store"] = store
		if healthy, ok := store["healthy"].(bool); ok && !healthy {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, body)
}

func (h *Handler) session(c *gin.Context) (*spinwheel.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return s, true
}
