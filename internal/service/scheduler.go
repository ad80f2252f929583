package service

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartScheduler attaches the daily maintenance jobs: the expired-pin
// sweep and the counter-reset backstop. Both are idempotent and safe to
// run more than once per period, so a missed or doubled tick is harmless.
func StartScheduler(p *PinService) *cron.Cron {
	c := cron.New()

	c.AddFunc("0 0 * * *", func() {
		n, err := p.ReclaimExpired(context.Background(), p.Now(), ReclaimBatchLimit)
		if err != nil {
			zap.L().Error("Expired pin sweep failed", zap.Error(err))
			return
		}

		zap.L().Info("Expired pin sweep finished", zap.Int("reclaimed", n))
	})

	c.AddFunc("0 0 * * *", func() {
		n, err := p.ResetDailyCounters(p.Now())
		if err != nil {
			zap.L().Error("Daily counter reset failed", zap.Error(err))
			return
		}

		zap.L().Info("Daily counter reset finished", zap.Int64("users", n))
	})

	c.Start()
	zap.L().Debug("Reclamation scheduler attached")

	return c
}
