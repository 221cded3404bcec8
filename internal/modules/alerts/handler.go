package alerts

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commonshub/core/internal/config"
	"github.com/commonshub/core/internal/middleware"
	"github.com/commonshub/core/internal/pkg/ratelimit"
	"github.com/commonshub/core/internal/pkg/response"
)

const (
	requestBudget = 10
	confirmBudget = 20
	requestWindow = 60 * time.Second
)

type Handler struct {
	svc      *Service
	limiter  ratelimit.Limiter
	notifier *Notifier
	cfg      *config.AppConfig
	log      *zap.Logger
}

func NewHandler(svc *Service, limiter ratelimit.Limiter, notifier *Notifier, cfg *config.AppConfig, log *zap.Logger) *Handler {
	return &Handler{svc: svc, limiter: limiter, notifier: notifier, cfg: cfg, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/alerts")

	// Limits run before any body parsing so malformed payloads still count.
	g.POST("/subscribe",
		middleware.RateLimit(h.limiter, "alerts:subscribe-request", requestBudget, requestWindow),
		h.requestSubscribe)
	g.POST("/unsubscribe",
		middleware.RateLimit(h.limiter, "alerts:unsubscribe-request", requestBudget, requestWindow),
		h.requestUnsubscribe)
	g.GET("/confirm",
		middleware.RateLimit(h.limiter, "alerts:confirm", confirmBudget, requestWindow),
		h.confirmSubscribe)
	g.GET("/unsubscribe-confirm",
		middleware.RateLimit(h.limiter, "alerts:unsubscribe-confirm", confirmBudget, requestWindow),
		h.confirmUnsubscribe)
}

// POST /alerts/subscribe
func (h *Handler) requestSubscribe(c *gin.Context) {
	h.handleRequest(c, ActionSubscribe)
}

// POST /alerts/unsubscribe
func (h *Handler) requestUnsubscribe(c *gin.Context) {
	h.handleRequest(c, ActionUnsubscribe)
}

func (h *Handler) handleRequest(c *gin.Context, action string) {
	var dto AlertRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	var issued []IssuedToken
	var err error
	if action == ActionSubscribe {
		issued, err = h.svc.RequestSubscribe(&dto)
	} else {
		issued, err = h.svc.RequestUnsubscribe(&dto)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.DeliverConfirmations(c.Request.Context(), action, &dto, issued)
	}

	body := gin.H{"ok": true}
	if !h.cfg.IsProd() {
		body["tokens"] = issued
	}
	c.JSON(http.StatusOK, body)
}

// GET /alerts/confirm?token=...
func (h *Handler) confirmSubscribe(c *gin.Context) {
	h.handleConfirm(c, ActionSubscribe)
}

// GET /alerts/unsubscribe-confirm?token=...
func (h *Handler) confirmUnsubscribe(c *gin.Context) {
	h.handleConfirm(c, ActionUnsubscribe)
}

func (h *Handler) handleConfirm(c *gin.Context, action string) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.BadRequest(c, "missing token")
		return
	}

	if err := h.svc.Confirm(rawToken, action); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var se *StorageError
	if errors.As(err, &se) {
		h.log.Error("alerts storage failure",
			zap.String("path", c.Request.URL.Path),
			zap.Error(se.Err),
		)
		response.InternalError(c, se.Message)
		return
	}
	response.BadRequest(c, err.Error())
}
