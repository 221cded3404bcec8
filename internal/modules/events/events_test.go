package events

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commonshub/core/internal/database"
	"github.com/commonshub/core/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedEvent(t *testing.T, svc *Service, capacity int) *models.EventModel {
	t.Helper()
	ev, err := svc.Create(&CreateEventDTO{
		Title:     "Repair Cafe",
		Location:  "Community Hall",
		StartsAt:  time.Now().UTC().Add(48 * time.Hour),
		Capacity:  capacity,
		Published: true,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

func TestRSVPUpsert(t *testing.T) {
	svc := NewService(testDB(t))
	ev := seedEvent(t, svc, 0)

	first, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "kim@example.org", Name: "Kim", Status: models.RSVPGoing})
	if err != nil {
		t.Fatalf("rsvp: %v", err)
	}

	second, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "kim@example.org", Name: "Kim", Status: models.RSVPDeclined})
	if err != nil {
		t.Fatalf("second rsvp: %v", err)
	}
	if second.Status != models.RSVPDeclined {
		t.Errorf("status = %q, want declined", second.Status)
	}
	if second.ID != first.ID {
		t.Error("repeated rsvp created a second row instead of updating")
	}

	rsvps, err := svc.Attendees(ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rsvps) != 1 {
		t.Errorf("attendees = %d, want 1", len(rsvps))
	}
}

func TestRSVPCapacity(t *testing.T) {
	svc := NewService(testDB(t))
	ev := seedEvent(t, svc, 2)

	for i := 0; i < 2; i++ {
		_, err := svc.RSVP(ev.ID, &RSVPDTO{
			Email: fmt.Sprintf("p%d@example.org", i), Name: "P", Status: models.RSVPGoing,
		})
		if err != nil {
			t.Fatalf("rsvp %d: %v", i, err)
		}
	}

	_, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "late@example.org", Name: "Late", Status: models.RSVPGoing})
	if err != errEventFull {
		t.Errorf("err = %v, want %v", err, errEventFull)
	}

	// Changing an existing answer never consumes a new slot.
	if _, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "p0@example.org", Name: "P", Status: models.RSVPGoing}); err != nil {
		t.Errorf("existing attendee re-rsvp: %v", err)
	}

	// A maybe does not count against capacity.
	if _, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "maybe@example.org", Name: "M", Status: models.RSVPMaybe}); err != nil {
		t.Errorf("maybe rsvp: %v", err)
	}
}

func TestRSVPRejectsBadStatusAndPastEvents(t *testing.T) {
	svc := NewService(testDB(t))
	ev := seedEvent(t, svc, 0)

	if _, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "x@example.org", Name: "X", Status: "perhaps"}); err != errBadRSVPStatus {
		t.Errorf("err = %v, want %v", err, errBadRSVPStatus)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if err := svc.db.Model(&models.EventModel{}).Where("id = ?", ev.ID).
		Update("starts_at", past).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "x@example.org", Name: "X"}); err != errEventPassed {
		t.Errorf("err = %v, want %v", err, errEventPassed)
	}
}

func TestCalendarExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(testDB(t))
	seedEvent(t, svc, 0)

	r := gin.New()
	h := NewHandler(svc)
	h.RegisterRoutes(r.Group("/api/v2"), func(c *gin.Context) { c.Next() })

	req := httptest.NewRequest(http.MethodGet, "/api/v2/events/calendar.ics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "SUMMARY:Repair Cafe", "LOCATION:Community Hall", "END:VCALENDAR"} {
		if !strings.Contains(body, want) {
			t.Errorf("calendar missing %q:\n%s", want, body)
		}
	}
}

func TestICalEscaping(t *testing.T) {
	got := escapeICalText("a,b;c\nnew\\line")
	want := `a\,b\;c\nnew\\line`
	if got != want {
		t.Errorf("escape = %q, want %q", got, want)
	}
}

func TestUnpublishedEventHiddenFromRSVP(t *testing.T) {
	svc := NewService(testDB(t))
	ev, err := svc.Create(&CreateEventDTO{
		Title:    "Draft",
		StartsAt: time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RSVP(ev.ID, &RSVPDTO{Email: "x@example.org", Name: "X"}); err != errEventNotFound {
		t.Errorf("err = %v, want %v", err, errEventNotFound)
	}
}
