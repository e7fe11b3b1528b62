// internal/scheduler/purchase_reminder_job.go
package scheduler

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/services"
)

// PurchaseReminderJob nudges winners who still have not completed a pending
// purchase. Runs daily, half an hour after the expiry sweep.
type PurchaseReminderJob struct {
	purchases *services.PurchaseService
	config    *config.Config
}

func NewPurchaseReminderJob(purchases *services.PurchaseService, cfg *config.Config) *PurchaseReminderJob {
	return &PurchaseReminderJob{
		purchases: purchases,
		config:    cfg,
	}
}

func (j *PurchaseReminderJob) GetName() string {
	return "purchase_reminder"
}

func (j *PurchaseReminderJob) GetSchedule() gocron.JobDefinition {
	minute := (j.config.Scheduler.DailyJobMinute + 30) % 60
	hour := j.config.Scheduler.DailyJobHour
	if j.config.Scheduler.DailyJobMinute+30 >= 60 {
		hour = (hour + 1) % 24
	}
	return gocron.DailyJob(1, gocron.NewAtTimes(
		gocron.NewAtTime(uint(hour), uint(minute), 0),
	))
}

func (j *PurchaseReminderJob) Execute() {
	sent, err := j.purchases.SendReminders()
	if err != nil {
		logrus.WithError(err).Error("Purchase reminder sweep failed")
		return
	}
	if sent > 0 {
		logrus.WithField("sent", sent).Info("Purchase reminders queued")
	}
}
