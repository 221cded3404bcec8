package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commonshub/core/internal/middleware"
	"github.com/commonshub/core/internal/modules/alerts"
	"github.com/commonshub/core/internal/modules/auth"
	"github.com/commonshub/core/internal/modules/chat"
	"github.com/commonshub/core/internal/modules/events"
	"github.com/commonshub/core/internal/modules/health"
	"github.com/commonshub/core/internal/modules/resources"
	"github.com/commonshub/core/internal/pkg/mail"
	"github.com/commonshub/core/internal/pkg/ratelimit"
	"github.com/commonshub/core/internal/pkg/response"
	"github.com/commonshub/core/internal/pkg/sms"
	"github.com/commonshub/core/internal/pkg/taskqueue"
)

var processStart = time.Now()

func (a *App) registerRoutes() {
	r := a.router
	cfg := a.cfg
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "commons-hub-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/commonshub/core",
	}

	// Duplicate-request suppression for admin mutations. Alert endpoints are
	// exempt inside the middleware: resending a confirmation is a feature.
	r.Use(middleware.Idempotence(a.rc.Raw()))

	// Shared infrastructure
	limiter := ratelimit.NewMemory()
	taskSvc := taskqueue.NewService(a.rc)
	mailer := mail.New(mail.Config{
		Enable:    cfg.Mail.Enable,
		Host:      cfg.Mail.Host,
		Port:      cfg.Mail.Port,
		User:      cfg.Mail.User,
		Pass:      cfg.Mail.Pass,
		From:      cfg.Mail.From,
		ReplyTo:   cfg.Mail.ReplyTo,
		UseResend: cfg.Mail.UseResend,
		ResendKey: cfg.Mail.ResendKey,
	})
	texter := sms.New(func() (gatewayURL, apiKey, senderID string) {
		if !cfg.SMS.Enable {
			return "", "", ""
		}
		return cfg.SMS.GatewayURL, cfg.SMS.APIKey, cfg.SMS.SenderID
	})

	api := r.Group("/api/v2")
	api.Use(middleware.OptionalAuth())

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"timestamp": time.Since(processStart).Milliseconds()})
	})

	health.NewHandler(a.db, a.rc).RegisterRoutes(api)

	// Core: double opt-in alert subscriptions
	alertSvc := alerts.NewService(a.db)
	notifier := alerts.NewNotifier(taskSvc, mailer, texter, cfg, a.logger)
	alerts.NewHandler(alertSvc, limiter, notifier, cfg, a.logger).RegisterRoutes(api)

	// Community surface
	events.NewHandler(events.NewService(a.db)).RegisterRoutes(api, authMW)
	resources.NewHandler(resources.NewService(a.db)).RegisterRoutes(api, authMW)
	chat.NewHandler(chat.NewService(cfg, a.logger), limiter).RegisterRoutes(api)

	// Admin
	auth.NewHandler(auth.NewService(cfg), limiter).RegisterRoutes(api, authMW)
	a.registerTaskRoutes(api, taskSvc, authMW)
	a.registerCronRoutes(api, authMW)
	a.registerLogRoutes(api, authMW)
}
