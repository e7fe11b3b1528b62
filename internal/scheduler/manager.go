// internal/scheduler/manager.go
package scheduler

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/services"
)

// Job is one background task with its own cadence.
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager owns the background schedule: auction sweeps, purchase expiry,
// reminders and the notification outbox drain.
type Manager struct {
	scheduler gocron.Scheduler
	config    *config.Config
	jobs      []Job
}

func NewManager(cfg *config.Config, auctions *services.AuctionService, purchases *services.PurchaseService, notifications *services.NotificationService) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: s,
		config:    cfg,
		jobs: []Job{
			NewAuctionSweepJob(auctions, cfg),
			NewPurchaseExpiryJob(purchases, cfg),
			NewPurchaseReminderJob(purchases, cfg),
			NewOutboxDrainJob(notifications, cfg),
		},
	}, nil
}

// Start registers every job and launches the scheduler.
func (m *Manager) Start() {
	for _, job := range m.jobs {
		m.register(job)
	}
	m.scheduler.Start()
	logrus.Info("Scheduler started")
}

// register adds one job in singleton mode so a slow run never overlaps the
// next tick of the same job.
func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logrus.WithError(err).WithField("job", job.GetName()).Error("Failed to register job")
	}
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logrus.WithError(err).Error("Failed to shutdown scheduler")
		return
	}
	logrus.Info("Scheduler stopped")
}
