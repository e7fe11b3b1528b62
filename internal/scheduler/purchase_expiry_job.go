// internal/scheduler/purchase_expiry_job.go
package scheduler

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/services"
)

// PurchaseExpiryJob marks pending purchases past their completion window as
// expired, once a day.
type PurchaseExpiryJob struct {
	purchases *services.PurchaseService
	config    *config.Config
}

func NewPurchaseExpiryJob(purchases *services.PurchaseService, cfg *config.Config) *PurchaseExpiryJob {
	return &PurchaseExpiryJob{
		purchases: purchases,
		config:    cfg,
	}
}

func (j *PurchaseExpiryJob) GetName() string {
	return "purchase_expiry"
}

func (j *PurchaseExpiryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DailyJob(1, gocron.NewAtTimes(
		gocron.NewAtTime(uint(j.config.Scheduler.DailyJobHour), uint(j.config.Scheduler.DailyJobMinute), 0),
	))
}

func (j *PurchaseExpiryJob) Execute() {
	expired, err := j.purchases.ExpireStale()
	if err != nil {
		logrus.WithError(err).Error("Purchase expiry sweep failed")
		return
	}
	if expired > 0 {
		logrus.WithField("expired", expired).Info("Purchase expiry sweep completed")
	}
}
