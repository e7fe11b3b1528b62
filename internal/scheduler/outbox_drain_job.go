// internal/scheduler/outbox_drain_job.go
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/services"
)

const outboxBatchSize = 100

// OutboxDrainJob pushes queued notifications out through the worker pool.
type OutboxDrainJob struct {
	notifications *services.NotificationService
	config        *config.Config
}

func NewOutboxDrainJob(notifications *services.NotificationService, cfg *config.Config) *OutboxDrainJob {
	return &OutboxDrainJob{
		notifications: notifications,
		config:        cfg,
	}
}

func (j *OutboxDrainJob) GetName() string {
	return "outbox_drain"
}

func (j *OutboxDrainJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Scheduler.OutboxDrainSeconds) * time.Second)
}

func (j *OutboxDrainJob) Execute() {
	delivered, err := j.notifications.DrainOutbox(outboxBatchSize)
	if err != nil {
		logrus.WithError(err).Error("Outbox drain failed")
		return
	}
	if delivered > 0 {
		logrus.WithField("delivered", delivered).Info("Notifications delivered")
	}
}
