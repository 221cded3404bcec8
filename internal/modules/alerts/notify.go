package alerts

import (
	"context"
	"fmt"
	neturl "net/url"

	"go.uber.org/zap"

	"github.com/commonshub/core/internal/config"
	"github.com/commonshub/core/internal/pkg/mail"
	"github.com/commonshub/core/internal/pkg/sms"
	"github.com/commonshub/core/internal/pkg/taskqueue"
)

// Notifier delivers confirmation links out of band. Each delivery is recorded
// as a queue task so failed sends are visible and retryable from the admin
// task endpoints.
type Notifier struct {
	queue  *taskqueue.Service
	mailer *mail.Sender
	texter *sms.Service
	cfg    *config.AppConfig
	log    *zap.Logger
}

func NewNotifier(queue *taskqueue.Service, mailer *mail.Sender, texter *sms.Service, cfg *config.AppConfig, log *zap.Logger) *Notifier {
	return &Notifier{queue: queue, mailer: mailer, texter: texter, cfg: cfg, log: log}
}

type confirmationPayload struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	To      string `json:"to"`
	Token   string `json:"token"`
}

// DeliverConfirmations enqueues and sends one confirmation message per issued
// token. Delivery runs in the background: the request handler's job ended
// when the token was persisted.
func (n *Notifier) DeliverConfirmations(ctx context.Context, action string, dto *AlertRequestDTO, issued []IssuedToken) {
	for _, tok := range issued {
		payload := confirmationPayload{
			Action:  action,
			Channel: tok.Channel,
			Token:   tok.Token,
		}
		switch tok.Channel {
		case ChannelEmail:
			if dto.Email == nil {
				continue
			}
			payload.To = *dto.Email
		case ChannelSMS:
			if dto.Phone == nil {
				continue
			}
			payload.To = *dto.Phone
		default:
			continue
		}

		taskType := taskqueue.TypeAlertEmail
		if tok.Channel == ChannelSMS {
			taskType = taskqueue.TypeAlertSMS
		}

		task, err := n.queue.Enqueue(context.WithoutCancel(ctx), taskType, payload, "", action)
		if err != nil {
			n.log.Error("enqueue confirmation delivery", zap.Error(err))
			continue
		}
		go n.run(context.WithoutCancel(ctx), task.ID, payload)
	}
}

func (n *Notifier) run(ctx context.Context, taskID string, payload confirmationPayload) {
	if err := n.queue.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, ""); err != nil {
		n.log.Warn("mark delivery running", zap.Error(err))
	}

	err := n.send(payload)
	if err != nil {
		n.log.Error("confirmation delivery failed",
			zap.String("channel", payload.Channel),
			zap.Error(err),
		)
		_ = n.queue.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}
	_ = n.queue.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, nil, "")
}

func (n *Notifier) send(payload confirmationPayload) error {
	link := n.confirmLink(payload.Action, payload.Token)

	switch payload.Channel {
	case ChannelEmail:
		data := mail.ConfirmData{
			SiteName:   n.cfg.Site.Name,
			ConfirmURL: link,
		}
		if payload.Action == ActionUnsubscribe {
			return n.mailer.SendConfirmUnsubscribe(payload.To, data)
		}
		return n.mailer.SendConfirmSubscribe(payload.To, data)
	case ChannelSMS:
		verb := "start"
		if payload.Action == ActionUnsubscribe {
			verb = "stop"
		}
		body := fmt.Sprintf("%s: confirm to %s receiving alerts: %s", n.cfg.Site.Name, verb, link)
		return n.texter.Send(payload.To, body)
	}
	return fmt.Errorf("unknown channel %q", payload.Channel)
}

func (n *Notifier) confirmLink(action, token string) string {
	base := n.cfg.Site.WebURL
	if base == "" {
		base = n.cfg.Site.ServerURL
	}
	path := "/alerts/confirm"
	if action == ActionUnsubscribe {
		path = "/alerts/unsubscribe-confirm"
	}
	return fmt.Sprintf("%s%s?token=%s", base, path, neturl.QueryEscape(token))
}
