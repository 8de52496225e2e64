package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/leadyard/internal/analytics"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/qualify"
	"go.uber.org/zap"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/healthz", h.health)

	buyers := router.Group("/api/buyers")
	buyers.POST("/register", h.register)
	buyers.POST("/login", h.login)

	leads := router.Group("/api/leads")
	leads.GET("", h.listLeads)
	leads.GET("/:id", h.getLead)
	leads.POST("/:id/messages", h.postMessage)

	router.GET("/api/analytics", h.analytics)
	router.GET("/_debug/emails", h.debugEmails)
}

type handlers struct {
	store  lead.Repository
	engine Engine
	log    *zap.Logger
}

type registerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

type loginRequest struct {
	Email string `json:"email" binding:"required"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}
	l, err := h.store.Register(c.Request.Context(), lead.RegisterOpts{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	l, err := h.store.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lead_id":        l.ID,
		"name":           l.Name,
		"chat_completed": l.ChatCompleted,
	})
}

func (h *handlers) listLeads(c *gin.Context) {
	opts := lead.ListOpts{Sort: c.DefaultQuery("sort", lead.SortNewest)}
	if opts.Sort != lead.SortNewest && opts.Sort != lead.SortOldest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be newest or oldest"})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		opts.Limit = n
	}
	leads, err := h.store.List(c.Request.Context(), opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(leads), "leads": leads})
}

func (h *handlers) getLead(c *gin.Context) {
	l, err := h.engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *handlers) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	l, err := h.engine.ProcessTurn(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": l.ChatCompleted, "lead": l})
}

func (h *handlers) analytics(c *gin.Context) {
	report, err := analytics.Load(c.Request.Context(), h.store)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) debugEmails(c *gin.Context) {
	emails, err := h.store.ListSummaries(c.Request.Context(), lead.DefaultSummaryLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(emails), "emails": emails})
}

// writeError maps engine and store errors to HTTP statuses.
func (h *handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lead.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
	case errors.Is(err, lead.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered. Please log in instead."})
	case errors.Is(err, qualify.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
	case isValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("request error", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// isValidation reports whether err is a registration input error.
func isValidation(err error) bool {
	var v *lead.ValidationError
	return errors.As(err, &v)
}
