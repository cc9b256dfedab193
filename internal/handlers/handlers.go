package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"social-auto-reply-go/internal/normalize"
	"social-auto-reply-go/internal/pipeline"
	"social-auto-reply-go/internal/scheduler"
	"social-auto-reply-go/internal/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Details   map[string]string `json:"details,omitempty"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	db          *gorm.DB
	store       *store.Store
	webhook     *pipeline.WebhookPipeline
	scheduler   *scheduler.Scheduler
	verifyToken string
}

// New creates new HTTP handlers. The scheduler is nil when the mailbox
// path is not configured.
func New(db *gorm.DB, s *store.Store, webhook *pipeline.WebhookPipeline, sched *scheduler.Scheduler, verifyToken string) *Handlers {
	return &Handlers{
		db:          db,
		store:       s,
		webhook:     webhook,
		scheduler:   sched,
		verifyToken: verifyToken,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/webhook", h.VerifyWebhook)
	router.POST("/webhook", h.ReceiveWebhook)

	router.GET("/events", h.GetEvents)
	router.GET("/emails", h.GetEmailLogs)

	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/mailbox/run-once", h.RunMailboxOnce)
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// VerifyWebhook handles the platform's verification handshake: the
// challenge is echoed back only for a subscribe request carrying the
// configured token.
func (h *Handlers) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		logrus.Info("Webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}

	logrus.Warn("Webhook verification failed")
	c.String(http.StatusForbidden, "Verification failed")
}

// ReceiveWebhook handles a webhook delivery. The sender always gets the
// same acknowledgement regardless of processing outcome.
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	var payload normalize.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logrus.Warnf("Malformed webhook payload: %v", err)
		c.String(http.StatusOK, "EVENT_RECEIVED")
		return
	}

	h.webhook.ProcessPayload(c.Request.Context(), &payload)

	c.String(http.StatusOK, "EVENT_RECEIVED")
}

// GetEvents returns all stored events, most recent first
func (h *Handlers) GetEvents(c *gin.Context) {
	events, err := h.store.ListEvents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch events",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEmailLogs returns all email logs, most recent first
func (h *Handlers) GetEmailLogs(c *gin.Context) {
	logs, err := h.store.ListEmailLogs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch email logs",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"emails": logs})
}

// RunMailboxOnce runs one mailbox poll iteration synchronously and
// returns its status line.
func (h *Handlers) RunMailboxOnce(c *gin.Context) {
	if h.scheduler == nil {
		c.String(http.StatusServiceUnavailable, "mailbox is not configured")
		return
	}

	status, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "mailbox run failed: %v", err)
		return
	}

	c.String(http.StatusOK, status)
}

// StartScheduler starts the mailbox poll loop
func (h *Handlers) StartScheduler(c *gin.Context) {
	if h.scheduler == nil {
		c.String(http.StatusServiceUnavailable, "mailbox is not configured")
		return
	}

	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to start scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler started successfully",
		"status":  "running",
	})
}

// StopScheduler stops the mailbox poll loop
func (h *Handlers) StopScheduler(c *gin.Context) {
	if h.scheduler == nil {
		c.String(http.StatusServiceUnavailable, "mailbox is not configured")
		return
	}

	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to stop scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler stopped successfully",
		"status":  "stopped",
	})
}

// GetSchedulerStatus returns the current poll loop status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"status": "disabled"})
		return
	}

	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"next_run": h.scheduler.NextRun(),
		"last_run": h.scheduler.LastRun(),
	})
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Details:   make(map[string]string),
	}

	if err := h.db.Raw("SELECT 1").Error; err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler == nil {
		response.Details["scheduler"] = "disabled"
	} else if h.scheduler.IsRunning() {
		response.Details["scheduler"] = "running"
		response.Details["next_run"] = h.scheduler.NextRun().Format(time.RFC3339)
		response.Details["last_run"] = h.scheduler.LastRun().Format(time.RFC3339)
	} else {
		response.Details["scheduler"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
