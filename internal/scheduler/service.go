// Package scheduler runs the pipeline's periodic maintenance: dedup
// pruning and the optional usage digest.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/replypilot/replypilot/internal/config"
	"github.com/replypilot/replypilot/internal/controller"
	"github.com/replypilot/replypilot/internal/notifications"
	"github.com/replypilot/replypilot/internal/settings"
)

// Service handles scheduling of maintenance tasks
type Service struct {
	config   *config.Config
	ctrl     *controller.Controller
	store    settings.Store
	notifier notifications.NotificationInterface
	cron     *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, ctrl *controller.Controller, store settings.Store, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:   cfg,
		ctrl:     ctrl,
		store:    store,
		notifier: notifier,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled maintenance
func (s *Service) Start() error {
	// Prune dead dedup entries every minute.
	if _, err := s.cron.AddFunc("0 * * * * *", s.ctrl.PruneDedup); err != nil {
		return err
	}

	if s.config.DigestSchedule != "" {
		var cronExpression string
		switch s.config.DigestSchedule {
		case "daily":
			// Run daily at 9 AM UTC
			cronExpression = "0 0 9 * * *"
		case "weekly":
			// Run weekly on Monday at 9 AM UTC
			cronExpression = "0 0 9 * * MON"
		}
		if _, err := s.cron.AddFunc(cronExpression, s.sendDigest); err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started (digest schedule: %q)", s.config.DigestSchedule)
	return nil
}

func (s *Service) sendDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := s.store.Load(ctx)
	if err != nil {
		logrus.Errorf("Digest skipped, failed to load settings: %v", err)
		return
	}
	snapshot := s.ctrl.Handle(ctx, controller.PingRequest{})
	digest := &notifications.Digest{
		GeneratedAt:    time.Now().UTC(),
		Period:         s.config.DigestSchedule,
		Stats:          st.Stats,
		Enabled:        snapshot.Enabled,
		DecoratedPosts: snapshot.Observer.DecoratedPosts,
	}
	if err := s.notifier.SendDigest(digest); err != nil {
		logrus.Errorf("Scheduled digest failed: %v", err)
	}
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
