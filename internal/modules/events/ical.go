package events

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commonshub/core/internal/models"
	"github.com/commonshub/core/internal/pkg/response"
)

const icalTimeLayout = "20060102T150405Z"

// GET /events/calendar.ics
func (h *Handler) calendar(c *gin.Context) {
	var events []models.EventModel
	err := h.svc.db.
		Where("published = ? AND starts_at >= ?", true, time.Now().UTC().Add(-24*time.Hour)).
		Order("starts_at ASC").
		Find(&events).Error
	if err != nil {
		response.InternalError(c, "failed to list events")
		return
	}
	writeCalendar(c, events)
}

// GET /events/:id/calendar.ics
func (h *Handler) eventCalendar(c *gin.Context) {
	ev, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ev.Published {
		response.NotFound(c)
		return
	}
	writeCalendar(c, []models.EventModel{*ev})
}

func writeCalendar(c *gin.Context, events []models.EventModel) {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//Commons Hub//Events//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("METHOD:PUBLISH\r\n")

	now := time.Now().UTC().Format(icalTimeLayout)
	for _, ev := range events {
		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "UID:%s@commonshub\r\n", ev.ID)
		fmt.Fprintf(&b, "DTSTAMP:%s\r\n", now)
		fmt.Fprintf(&b, "DTSTART:%s\r\n", ev.StartsAt.UTC().Format(icalTimeLayout))
		if ev.EndsAt != nil {
			fmt.Fprintf(&b, "DTEND:%s\r\n", ev.EndsAt.UTC().Format(icalTimeLayout))
		}
		fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeICalText(ev.Title))
		if ev.Location != "" {
			fmt.Fprintf(&b, "LOCATION:%s\r\n", escapeICalText(ev.Location))
		}
		if ev.Description != "" {
			fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escapeICalText(ev.Description))
		}
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="events.ics"`)
	c.String(http.StatusOK, b.String())
}

// escapeICalText escapes the characters RFC 5545 reserves in TEXT values.
func escapeICalText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return r.Replace(s)
}
