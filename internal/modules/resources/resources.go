// Package resources is the shared resource library: links to local services,
// documents, and tools curated by the admins.
package resources

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/commonshub/core/internal/middleware"
	"github.com/commonshub/core/internal/models"
	"github.com/commonshub/core/internal/pkg/pagination"
	"github.com/commonshub/core/internal/pkg/response"
)

type ResourceDTO struct {
	Title       string `json:"title"       binding:"required"`
	URL         string `json:"url"         binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Published   *bool  `json:"published"`
}

var (
	errResourceNotFound = errors.New("resource not found")
	errBadResourceURL   = errors.New("invalid resource url")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(q pagination.Query, category string, publishedOnly bool) ([]models.ResourceModel, response.Pagination, error) {
	tx := s.db.Model(&models.ResourceModel{}).Order("category ASC, title ASC")
	if publishedOnly {
		tx = tx.Where("published = ?", true)
	}
	if category != "" {
		tx = tx.Where("category = ?", category)
	}
	var items []models.ResourceModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// Categories returns the distinct categories with published entries.
func (s *Service) Categories() ([]string, error) {
	var cats []string
	err := s.db.Model(&models.ResourceModel{}).
		Where("published = ? AND category <> ''", true).
		Distinct("category").Order("category ASC").
		Pluck("category", &cats).Error
	return cats, err
}

func (s *Service) GetByID(id string) (*models.ResourceModel, error) {
	var res models.ResourceModel
	if err := s.db.First(&res, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (s *Service) Create(dto *ResourceDTO) (*models.ResourceModel, error) {
	if err := validateURL(dto.URL); err != nil {
		return nil, err
	}
	res := models.ResourceModel{
		Title:       dto.Title,
		URL:         dto.URL,
		Category:    dto.Category,
		Description: dto.Description,
		Published:   dto.Published == nil || *dto.Published,
	}
	if err := s.db.Create(&res).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) Update(id string, dto *ResourceDTO) (*models.ResourceModel, error) {
	if err := validateURL(dto.URL); err != nil {
		return nil, err
	}
	res, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"title":       dto.Title,
		"url":         dto.URL,
		"category":    dto.Category,
		"description": dto.Description,
	}
	if dto.Published != nil {
		updates["published"] = *dto.Published
	}
	if err := s.db.Model(res).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *Service) Delete(id string) error {
	res := s.db.Delete(&models.ResourceModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errResourceNotFound
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errBadResourceURL
	}
	return nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/resources")

	g.GET("", h.list)
	g.GET("/categories", h.categories)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

// GET /resources?category=...
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	publishedOnly := !middleware.IsAuthenticated(c)
	items, pag, err := h.svc.List(q, c.Query("category"), publishedOnly)
	if err != nil {
		response.InternalError(c, "failed to list resources")
		return
	}
	response.Paged(c, items, pag)
}

// GET /resources/categories
func (h *Handler) categories(c *gin.Context) {
	cats, err := h.svc.Categories()
	if err != nil {
		response.InternalError(c, "failed to list categories")
		return
	}
	response.OK(c, cats)
}

// GET /resources/:id
func (h *Handler) get(c *gin.Context) {
	res, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !res.Published && !middleware.IsAuthenticated(c) {
		response.NotFound(c)
		return
	}
	response.OK(c, res)
}

// POST /resources
func (h *Handler) create(c *gin.Context) {
	var dto ResourceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	res, err := h.svc.Create(&dto)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, res)
}

// PUT /resources/:id
func (h *Handler) update(c *gin.Context) {
	var dto ResourceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	res, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, res)
}

// DELETE /resources/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errResourceNotFound):
		response.NotFound(c)
	case errors.Is(err, errBadResourceURL):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, "storage failure")
	}
}
