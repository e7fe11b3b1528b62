// internal/scheduler/auction_sweep_job.go
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/services"
)

// AuctionSweepJob closes auctions whose window has passed. Ending an auction
// does not depend on anyone hitting the API: the sweep settles winners and
// creates purchase records on its own.
type AuctionSweepJob struct {
	auctions *services.AuctionService
	config   *config.Config
}

func NewAuctionSweepJob(auctions *services.AuctionService, cfg *config.Config) *AuctionSweepJob {
	return &AuctionSweepJob{
		auctions: auctions,
		config:   cfg,
	}
}

func (j *AuctionSweepJob) GetName() string {
	return "auction_sweep"
}

func (j *AuctionSweepJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Scheduler.AuctionSweepMinutes) * time.Minute)
}

func (j *AuctionSweepJob) Execute() {
	ended, err := j.auctions.SweepExpired()
	if err != nil {
		logrus.WithError(err).Error("Auction sweep failed")
		return
	}
	if ended > 0 {
		logrus.WithField("ended", ended).Info("Auction sweep completed")
	}
}
