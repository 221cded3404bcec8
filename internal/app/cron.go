package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commonshub/core/internal/models"
	pkgcron "github.com/commonshub/core/internal/pkg/cron"
	"github.com/commonshub/core/internal/pkg/mail"
	"github.com/commonshub/core/internal/pkg/taskqueue"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	cronLogger := a.logger.Named("CronService")
	taskSvc := taskqueue.NewService(a.rc)
	mailer := mail.New(mail.Config{
		Enable:    a.cfg.Mail.Enable,
		Host:      a.cfg.Mail.Host,
		Port:      a.cfg.Mail.Port,
		User:      a.cfg.Mail.User,
		Pass:      a.cfg.Mail.Pass,
		From:      a.cfg.Mail.From,
		ReplyTo:   a.cfg.Mail.ReplyTo,
		UseResend: a.cfg.Mail.UseResend,
		ResendKey: a.cfg.Mail.ResendKey,
	})

	a.sched.Register(pkgcron.Job{
		Name:        "purge_finished_tasks",
		Description: "Delete completed delivery tasks older than 48 hours",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-48 * time.Hour).UnixMilli()
			if err := taskSvc.DeleteFinished(ctx, cutoff); err != nil {
				cronLogger.Warn("task purge failed", zap.Error(err))
				return err
			}
			cronLogger.Info("finished tasks purged")
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "event_reminders",
		Description: "Email going attendees about events starting within 24 hours",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			now := time.Now().UTC()
			var upcoming []models.EventModel
			err := a.db.
				Where("published = ? AND starts_at > ? AND starts_at <= ?", true, now, now.Add(24*time.Hour)).
				Find(&upcoming).Error
			if err != nil {
				return err
			}

			sent := 0
			for _, ev := range upcoming {
				var rsvps []models.RSVPModel
				if err := a.db.Where("event_id = ? AND status = ?", ev.ID, models.RSVPGoing).
					Find(&rsvps).Error; err != nil {
					cronLogger.Warn("load attendees failed", zap.String("event", ev.ID), zap.Error(err))
					continue
				}

				for _, rsvp := range rsvps {
					// One reminder per (event, attendee); the key outlives the event window.
					guard := fmt.Sprintf("commons:reminded:%s:%s", ev.ID, rsvp.Email)
					set, err := a.rc.Raw().SetNX(ctx, guard, 1, 48*time.Hour).Result()
					if err != nil || !set {
						continue
					}

					task, err := taskSvc.Enqueue(ctx, taskqueue.TypeEventReminder, nil, "", ev.ID)
					if err != nil {
						continue
					}

					data := mail.EventReminderData{
						SiteName: a.cfg.Site.Name,
						Title:    ev.Title,
						When:     ev.StartsAt.Format("Mon Jan 2 15:04 MST"),
						Location: ev.Location,
						Text:     ev.Description,
					}
					if a.cfg.Site.WebURL != "" {
						data.DetailURL = fmt.Sprintf("%s/events/%s", a.cfg.Site.WebURL, ev.ID)
					}
					if err := mailer.SendEventReminder(rsvp.Email, data); err != nil {
						cronLogger.Warn("reminder send failed", zap.String("event", ev.ID), zap.Error(err))
						_ = taskSvc.UpdateStatus(ctx, task.ID, taskqueue.TaskFailed, nil, err.Error())
						continue
					}
					_ = taskSvc.UpdateStatus(ctx, task.ID, taskqueue.TaskCompleted, nil, "")
					sent++
				}
			}
			cronLogger.Info(fmt.Sprintf("event reminders sent: %d", sent))
			return nil
		},
	})
}
