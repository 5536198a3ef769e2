package services

import (
	"time"

	"github.com/padoru233/trans-progress/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler drives the deadline broadcast. It fires every minute and
// lets BroadcastService decide which groups' configured times match.
type Scheduler struct {
	broadcastSvc *BroadcastService
	cron         *cron.Cron
}

func NewScheduler(broadcastSvc *BroadcastService) *Scheduler {
	return &Scheduler{broadcastSvc: broadcastSvc}
}

func (s *Scheduler) Start() error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc("* * * * *", func() {
		s.broadcastSvc.RunScheduled(time.Now())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Msg("deadline broadcast scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
