package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Config holds mail provider settings (matches AppConfig.Mail).
type Config struct {
	Enable    bool   `json:"enable" yaml:"enable"`
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	User      string `json:"user" yaml:"user"`
	Pass      string `json:"pass" yaml:"pass"`
	From      string `json:"from" yaml:"from"`
	ReplyTo   string `json:"reply_to" yaml:"reply_to"`
	UseResend bool   `json:"use_resend" yaml:"use_resend"`
	ResendKey string `json:"resend_key" yaml:"resend_key"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender sends emails via SMTP or Resend.
type Sender struct {
	cfg Config
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send dispatches an email. Uses Resend if configured, otherwise SMTP.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(msg)
	}
	return s.sendSMTP(msg)
}

// sendSMTP sends via net/smtp.
func (s *Sender) sendSMTP(msg Message) error {
	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if s.cfg.ReplyTo != "" {
		body.WriteString(fmt.Sprintf("Reply-To: %s\r\n", s.cfg.ReplyTo))
	}
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, host)
	return smtp.SendMail(addr, auth, from, msg.To, body.Bytes())
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(msg Message) error {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

const confirmSubscribeTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Confirm your alert subscription</h2>
  <p>You asked to receive {{.SiteName}} community alerts at this address. Click the button below to confirm:</p>
  <p style="margin-top:24px">
    <a href="{{.ConfirmURL}}" style="background:#4f46e5;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Confirm subscription</a>
  </p>
  <p style="color:#999;font-size:12px">This link expires in 24 hours. If you did not request this, you can safely ignore this email.</p>
  <p style="font-size:10px;color:#bbb;text-align:center">&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

const confirmUnsubscribeTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Confirm unsubscribe</h2>
  <p>We received a request to stop sending {{.SiteName}} alerts to this address. Click the button below to confirm:</p>
  <p style="margin-top:24px">
    <a href="{{.ConfirmURL}}" style="background:#dc2626;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Stop alerts</a>
  </p>
  <p style="color:#999;font-size:12px">This link expires in 2 hours. If you did not request this, no action is needed and alerts will continue.</p>
  <p style="font-size:10px;color:#bbb;text-align:center">&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

const eventReminderTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">{{.Title}}</h2>
  <p>{{.When}}{{if .Location}} at {{.Location}}{{end}}</p>
  <p style="font-size:14px;line-height:24px">{{.Text}}</p>
  {{if .DetailURL}}
  <p style="margin-top:24px">
    <a href="{{.DetailURL}}" style="background:#4f46e5;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">View event</a>
  </p>
  {{end}}
  <p style="font-size:10px;color:#bbb;text-align:center">&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

const alertBroadcastTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#b91c1c">{{.Title}}</h2>
  <p style="font-size:14px;line-height:24px">{{.Body}}</p>
  {{if .UnsubscribeURL}}
  <p style="color:#999;font-size:12px">No longer want these alerts? <a href="{{.UnsubscribeURL}}">Unsubscribe</a>.</p>
  {{end}}
  <p style="font-size:10px;color:#bbb;text-align:center">&copy;{{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

// ConfirmData is the data for confirmation-link emails.
type ConfirmData struct {
	SiteName   string
	ConfirmURL string
}

// EventReminderData is the data for event reminder emails.
type EventReminderData struct {
	SiteName  string
	Title     string
	When      string
	Location  string
	Text      string
	DetailURL string
}

// AlertBroadcastData is the data for community alert broadcast emails.
type AlertBroadcastData struct {
	SiteName       string
	Title          string
	Body           string
	UnsubscribeURL string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func defaultSiteName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Commons Hub"
	}
	return name
}

// SendConfirmSubscribe sends a subscription confirmation link.
func (s *Sender) SendConfirmSubscribe(to string, data ConfirmData) error {
	data.SiteName = defaultSiteName(data.SiteName)
	html, err := renderTemplate(confirmSubscribeTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Confirm your alert subscription", data.SiteName),
		HTML:    html,
	})
}

// SendConfirmUnsubscribe sends an unsubscribe confirmation link.
func (s *Sender) SendConfirmUnsubscribe(to string, data ConfirmData) error {
	data.SiteName = defaultSiteName(data.SiteName)
	html, err := renderTemplate(confirmUnsubscribeTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Confirm unsubscribe", data.SiteName),
		HTML:    html,
	})
}

// SendEventReminder sends an upcoming-event reminder.
func (s *Sender) SendEventReminder(to string, data EventReminderData) error {
	data.SiteName = defaultSiteName(data.SiteName)
	html, err := renderTemplate(eventReminderTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Reminder: %s", data.SiteName, data.Title),
		HTML:    html,
	})
}

// SendAlertBroadcast sends a community alert to a confirmed subscriber.
func (s *Sender) SendAlertBroadcast(to string, data AlertBroadcastData) error {
	data.SiteName = defaultSiteName(data.SiteName)
	html, err := renderTemplate(alertBroadcastTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] %s", data.SiteName, data.Title),
		HTML:    html,
	})
}
