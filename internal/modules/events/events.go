package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commonshub/core/internal/middleware"
	"github.com/commonshub/core/internal/models"
	"github.com/commonshub/core/internal/pkg/pagination"
	"github.com/commonshub/core/internal/pkg/response"
)

type CreateEventDTO struct {
	Title       string     `json:"title"       binding:"required"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"   binding:"required"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    int        `json:"capacity"`
	Published   bool       `json:"published"`
}

type UpdateEventDTO struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    *int       `json:"capacity"`
	Published   *bool      `json:"published"`
}

type RSVPDTO struct {
	Email  string `json:"email"  binding:"required,email"`
	Name   string `json:"name"   binding:"required"`
	Status string `json:"status"`
}

var (
	errEventNotFound = errors.New("event not found")
	errEventFull     = errors.New("event is at capacity")
	errBadRSVPStatus = errors.New("invalid rsvp status")
	errEventPassed   = errors.New("event already started")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ListUpcoming returns published events starting now or later.
func (s *Service) ListUpcoming(q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	tx := s.db.Model(&models.EventModel{}).
		Where("published = ? AND starts_at >= ?", true, time.Now().UTC()).
		Order("starts_at ASC")
	var items []models.EventModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// ListAll returns every event, newest first, for the admin view.
func (s *Service) ListAll(q pagination.Query) ([]models.EventModel, response.Pagination, error) {
	tx := s.db.Model(&models.EventModel{}).Order("starts_at DESC")
	var items []models.EventModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(id string) (*models.EventModel, error) {
	var ev models.EventModel
	if err := s.db.First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (s *Service) Create(dto *CreateEventDTO) (*models.EventModel, error) {
	ev := models.EventModel{
		Title:       dto.Title,
		Description: dto.Description,
		Location:    dto.Location,
		StartsAt:    dto.StartsAt.UTC(),
		EndsAt:      dto.EndsAt,
		Capacity:    dto.Capacity,
		Published:   dto.Published,
	}
	if err := s.db.Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Service) Update(id string, dto *UpdateEventDTO) (*models.EventModel, error) {
	ev, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Location != nil {
		updates["location"] = *dto.Location
	}
	if dto.StartsAt != nil {
		updates["starts_at"] = dto.StartsAt.UTC()
	}
	if dto.EndsAt != nil {
		updates["ends_at"] = dto.EndsAt
	}
	if dto.Capacity != nil {
		updates["capacity"] = *dto.Capacity
	}
	if dto.Published != nil {
		updates["published"] = *dto.Published
	}
	if len(updates) == 0 {
		return ev, nil
	}
	if err := s.db.Model(ev).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *Service) Delete(id string) error {
	res := s.db.Delete(&models.EventModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errEventNotFound
	}
	return s.db.Delete(&models.RSVPModel{}, "event_id = ?", id).Error
}

// RSVP records or updates an attendee response. A repeated submit for the
// same (event, email) pair overwrites the earlier answer rather than
// consuming another capacity slot.
func (s *Service) RSVP(eventID string, dto *RSVPDTO) (*models.RSVPModel, error) {
	status := dto.Status
	if status == "" {
		status = models.RSVPGoing
	}
	switch status {
	case models.RSVPGoing, models.RSVPMaybe, models.RSVPDeclined:
	default:
		return nil, errBadRSVPStatus
	}

	ev, err := s.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !ev.Published {
		return nil, errEventNotFound
	}
	if ev.StartsAt.Before(time.Now().UTC()) {
		return nil, errEventPassed
	}

	if status == models.RSVPGoing && ev.Capacity > 0 {
		var going int64
		err := s.db.Model(&models.RSVPModel{}).
			Where("event_id = ? AND status = ? AND email <> ?", eventID, models.RSVPGoing, dto.Email).
			Count(&going).Error
		if err != nil {
			return nil, err
		}
		if going >= int64(ev.Capacity) {
			return nil, errEventFull
		}
	}

	rsvp := models.RSVPModel{
		EventID: eventID,
		Email:   dto.Email,
		Name:    dto.Name,
		Status:  status,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "status", "updated_at"}),
	}).Create(&rsvp).Error
	if err != nil {
		return nil, err
	}

	var saved models.RSVPModel
	if err := s.db.Where("event_id = ? AND email = ?", eventID, dto.Email).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// Attendees lists responses for one event, admin only.
func (s *Service) Attendees(eventID string) ([]models.RSVPModel, error) {
	if _, err := s.GetByID(eventID); err != nil {
		return nil, err
	}
	var rsvps []models.RSVPModel
	err := s.db.Where("event_id = ?", eventID).Order("created_at ASC").Find(&rsvps).Error
	return rsvps, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/events")

	g.GET("", h.list)
	g.GET("/calendar.ics", h.calendar)
	g.GET("/:id", h.get)
	g.GET("/:id/calendar.ics", h.eventCalendar)
	g.POST("/:id/rsvp", h.rsvp)

	a := g.Group("", authMW)
	a.GET("/admin/all", h.listAll)
	a.GET("/:id/attendees", h.attendees)
	a.POST("", h.create)
	a.PUT("/:id", h.update)
	a.DELETE("/:id", h.delete)
}

// GET /events
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.ListUpcoming(q)
	if err != nil {
		response.InternalError(c, "failed to list events")
		return
	}
	response.Paged(c, items, pag)
}

// GET /events/admin/all
func (h *Handler) listAll(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.ListAll(q)
	if err != nil {
		response.InternalError(c, "failed to list events")
		return
	}
	response.Paged(c, items, pag)
}

// GET /events/:id
func (h *Handler) get(c *gin.Context) {
	ev, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ev.Published && !middleware.IsAuthenticated(c) {
		response.NotFound(c)
		return
	}
	response.OK(c, ev)
}

// POST /events
func (h *Handler) create(c *gin.Context) {
	var dto CreateEventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	ev, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, "failed to create event")
		return
	}
	response.Created(c, ev)
}

// PUT /events/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateEventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	ev, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, ev)
}

// DELETE /events/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	response.NoContent(c)
}

// POST /events/:id/rsvp
func (h *Handler) rsvp(c *gin.Context) {
	var dto RSVPDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	rsvp, err := h.svc.RSVP(c.Param("id"), &dto)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, rsvp)
}

// GET /events/:id/attendees
func (h *Handler) attendees(c *gin.Context) {
	rsvps, err := h.svc.Attendees(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, rsvps)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errEventNotFound):
		response.NotFound(c)
	case errors.Is(err, errEventFull), errors.Is(err, errBadRSVPStatus), errors.Is(err, errEventPassed):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, "storage failure")
	}
}
