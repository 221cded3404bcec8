package mail

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRenderConfirmTemplates(t *testing.T) {
	data := ConfirmData{SiteName: "Riverside Commons", ConfirmURL: "https://hub.example.org/alerts/confirm?token=abc"}

	for name, tpl := range map[string]string{
		"subscribe":   confirmSubscribeTpl,
		"unsubscribe": confirmUnsubscribeTpl,
	} {
		html, err := renderTemplate(tpl, data)
		if err != nil {
			t.Fatalf("%s: render: %v", name, err)
		}
		if !strings.Contains(html, data.ConfirmURL) {
			t.Errorf("%s: rendered mail missing confirm link", name)
		}
		if !strings.Contains(html, "Riverside Commons") {
			t.Errorf("%s: rendered mail missing site name", name)
		}
		if !strings.Contains(html, fmt.Sprintf("&copy;%d", time.Now().Year())) {
			t.Errorf("%s: rendered mail missing year footer", name)
		}
	}
}

func TestRenderEscapesUserContent(t *testing.T) {
	html, err := renderTemplate(eventReminderTpl, EventReminderData{
		SiteName: "Commons Hub",
		Title:    "<script>alert(1)</script>",
		When:     "Friday 18:00",
		Text:     "Bring a dish & a friend",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("title was not escaped")
	}
	if !strings.Contains(html, "Bring a dish &amp; a friend") {
		t.Fatal("body text was not escaped")
	}
}

func TestSendIsNoopWhenDisabled(t *testing.T) {
	s := New(Config{Enable: false})
	if err := s.SendConfirmSubscribe("a@b.com", ConfirmData{ConfirmURL: "https://x"}); err != nil {
		t.Fatalf("disabled sender returned error: %v", err)
	}
}

func TestDefaultSiteName(t *testing.T) {
	if got := defaultSiteName("  "); got != "Commons Hub" {
		t.Errorf("defaultSiteName(blank) = %q", got)
	}
	if got := defaultSiteName("Riverside"); got != "Riverside" {
		t.Errorf("defaultSiteName kept = %q", got)
	}
}
