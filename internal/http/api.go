package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"seedvigil/internal/domain"
	"seedvigil/internal/engine"
	"seedvigil/internal/sites"
)

// AuthConfig is the operator credential set for the API.
type AuthConfig struct {
	JWTSecret    string
	Username     string
	PasswordHash string // bcrypt
	TokenTTL     time.Duration
}

// Handler wires HTTP routes to the reconciler and its collaborators.
type Handler struct {
	reconciler *engine.Reconciler
	registry   *sites.Registry
	runCycle   func(ctx context.Context) error
	auth       AuthConfig
}

func NewHandler(reconciler *engine.Reconciler, registry *sites.Registry, runCycle func(ctx context.Context) error, auth AuthConfig) *Handler {
	return &Handler{
		reconciler: reconciler,
		registry:   registry,
		runCycle:   runCycle,
		auth:       auth,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.POST("/api/login", h.login)
	router.GET("/api/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	api := router.Group("/api", h.authMiddleware())
	{
		api.GET("/tasks", h.listTasks)
		api.GET("/statistics", h.getStatistics)
		api.GET("/sites", h.listSites)
		api.POST("/check", h.runCheck)
		api.POST("/ingest", h.ingest)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Username != h.auth.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.auth.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.auth.TokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.auth.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": claims.ExpiresAt.Format(time.RFC3339)})
}

func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.auth.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.reconciler.Tasks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		additional := h.reconciler.ResolvePolicy(tasks[i].SiteName).AdditionalSeedTime
		resp[i] = taskToResponse(tasks[i], additional)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getStatistics(c *gin.Context) {
	stats, err := h.reconciler.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) listSites(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.All())
}

// runCheck triggers a single reconciliation cycle immediately.
func (h *Handler) runCheck(c *gin.Context) {
	if err := h.runCycle(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cycle completed"})
}

// ingest is the event-source boundary: external transports deliver
// download-observed notifications here.
func (h *Handler) ingest(c *gin.Context) {
	var ev engine.DownloadEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if ev.Origin == "" {
		ev.Origin = domain.OriginNormal
	}

	err := h.reconciler.IngestDownload(c.Request.Context(), ev)
	switch {
	case errors.Is(err, engine.ErrUnmonitoredDownloader), errors.Is(err, engine.ErrInvalidEvent):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "ingested"})
	}
}

type TaskResponse struct {
	Hash               string  `json:"hash"`
	Site               string  `json:"site"`
	SiteName           string  `json:"site_name"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	Size               int64   `json:"size"`
	Origin             string  `json:"origin"`
	Status             string  `json:"status"`
	StatusLabel        string  `json:"status_label"`
	HitAndRun          bool    `json:"hit_and_run"`
	Ratio              float64 `json:"ratio"`
	RequiredRatio      float64 `json:"required_ratio"`
	SeedingHours       float64 `json:"seeding_hours"`
	RequiredHours      float64 `json:"required_hours"`
	Deadline           string  `json:"deadline"`
	Deleted            bool    `json:"deleted"`
	CreatedAt          string  `json:"created_at"`
	ObligationMetAt    *string `json:"obligation_met_at,omitempty"`
	DeletedAt          *string `json:"deleted_at,omitempty"`
}

func taskToResponse(task domain.TorrentTask, additionalSeedTime float64) TaskResponse {
	resp := TaskResponse{
		Hash:          task.Hash,
		Site:          task.Site,
		SiteName:      task.SiteName,
		Title:         task.Title,
		Description:   task.Description,
		Size:          task.Size,
		Origin:        string(task.Origin),
		Status:        string(task.Status),
		StatusLabel:   task.Status.Label(),
		HitAndRun:     task.HitAndRun,
		Ratio:         task.Ratio,
		RequiredRatio: task.HRRatio,
		SeedingHours:  float64(task.SeedingTime) / 3600,
		RequiredHours: task.RequiredSeedingHours(additionalSeedTime),
		Deadline:      task.FormattedDeadline(),
		Deleted:       task.Deleted,
		CreatedAt:     time.Unix(task.CreatedAt, 0).Format(time.RFC3339),
	}
	if task.HRMetTime != 0 {
		v := time.Unix(task.HRMetTime, 0).Format(time.RFC3339)
		resp.ObligationMetAt = &v
	}
	if task.DeletedTime != 0 {
		v := time.Unix(task.DeletedTime, 0).Format(time.RFC3339)
		resp.DeletedAt = &v
	}
	return resp
}
