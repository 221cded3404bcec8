package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/commonshub/core/internal/config"
	"github.com/commonshub/core/internal/middleware"
	jwtpkg "github.com/commonshub/core/internal/pkg/jwt"
	"github.com/commonshub/core/internal/pkg/ratelimit"
	"github.com/commonshub/core/internal/pkg/response"
)

const (
	sessionTTL  = 30 * 24 * time.Hour
	loginBudget = 10
	loginWindow = 60 * time.Second
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

var errBadCredentials = errors.New("wrong username or password")

// Service checks logins against the single admin credential from config.
// There is no user table: the hub has exactly one operator identity.
type Service struct {
	cfg *config.AppConfig
}

func NewService(cfg *config.AppConfig) *Service { return &Service{cfg: cfg} }

func (s *Service) Login(username, password string) (string, error) {
	admin := s.cfg.Admin
	if admin.Username == "" || username != admin.Username {
		return "", errBadCredentials
	}

	if admin.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
			return "", errBadCredentials
		}
	} else {
		// Plaintext credential, development only.
		if s.cfg.IsProd() || admin.Password == "" || password != admin.Password {
			return "", errBadCredentials
		}
	}

	return jwtpkg.Sign(admin.Username, sessionTTL)
}

type Handler struct {
	svc     *Service
	limiter ratelimit.Limiter
}

func NewHandler(svc *Service, limiter ratelimit.Limiter) *Handler {
	return &Handler{svc: svc, limiter: limiter}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/login", middleware.RateLimit(h.limiter, "auth:login", loginBudget, loginWindow), h.login)

	a := g.Group("", authMW)
	a.GET("/me", h.me)
}

// POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	token, err := h.svc.Login(dto.Username, dto.Password)
	if err != nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, loginResponse{Token: token})
}

// GET /auth/me
func (h *Handler) me(c *gin.Context) {
	response.OK(c, gin.H{"username": middleware.CurrentSubject(c)})
}
