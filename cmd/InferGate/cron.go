package main

import (
	"context"
	"time"

	"InferGate/internal/biz"
	"InferGate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// auditRetention is how long persisted failure records are kept.
const auditRetention = 30 * 24 * time.Hour

// cronServer runs the background maintenance jobs as a kratos transport
// server: the periodic health-probe sweep and the daily audit retention
// purge. Both run off the request path.
type cronServer struct {
	c      *cron.Cron
	logger *log.Helper
}

func newCronServer(hm *biz.HealthMonitor, auditor biz.FailureAuditor, rc *conf.Resilience, logger log.Logger) *cronServer {
	helper := log.NewHelper(logger)

	interval := 60 * time.Second
	if rc != nil && rc.Health != nil && rc.Health.Interval != nil && rc.Health.Interval.AsDuration() > 0 {
		interval = rc.Health.Interval.AsDuration()
	}

	c := cron.New(cron.WithSeconds())

	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		hm.CheckAll(ctx)
	}))

	// Daily retention sweep at 03:00 (sec min hour dom month dow)
	_, err := c.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().Add(-auditRetention)
		if _, err := auditor.PurgeOlderThan(ctx, cutoff); err != nil {
			helper.Errorw("msg", "audit retention sweep failed", "error", err)
		}
	})
	if err != nil {
		helper.Errorw("msg", "failed to register audit retention cron job", "error", err)
	}

	return &cronServer{c: c, logger: helper}
}

// Start implements transport.Server.
func (s *cronServer) Start(_ context.Context) error {
	s.c.Start()
	s.logger.Info("maintenance cron started")
	return nil
}

// Stop implements transport.Server.
func (s *cronServer) Stop(_ context.Context) error {
	stopCtx := s.c.Stop()
	<-stopCtx.Done()
	s.logger.Info("maintenance cron stopped")
	return nil
}
