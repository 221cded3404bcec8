package health

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/commonshub/core/internal/pkg/redis"
	"github.com/commonshub/core/internal/pkg/response"
)

var startedAt = time.Now()

type Handler struct {
	db *gorm.DB
	rc *redis.Client
}

func NewHandler(db *gorm.DB, rc *redis.Client) *Handler {
	return &Handler{db: db, rc: rc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

// GET /health
func (h *Handler) health(c *gin.Context) {
	dbOK := true
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.Ping() != nil {
		dbOK = false
	}

	redisOK := h.rc != nil && h.rc.Ping(c.Request.Context()) == nil

	response.OK(c, gin.H{
		"ok":     dbOK && redisOK,
		"db":     dbOK,
		"redis":  redisOK,
		"uptime": time.Since(startedAt).Round(time.Second).String(),
	})
}
