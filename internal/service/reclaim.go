package service

import (
	"context"
	"fmt"
	"time"

	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/quota"

	"go.uber.org/zap"
)

// ReclaimBatchLimit caps one sweep. If more pins are expired the next
// run continues where this one left off.
const ReclaimBatchLimit = 1000

// ReclaimExpired deletes up to batchLimit pins whose expiry is at or
// before now, together with their storage objects. Pins are processed
// independently, one failing pin never aborts the batch, and every
// outcome lands in the reclaim log.
func (s *PinService) ReclaimExpired(ctx context.Context, now time.Time, batchLimit int) (int, error) {
	var expired []model.Pin

	err := s.DB.
		Where("expires_at <= ?", now.UnixMilli()).
		Limit(batchLimit).
		Find(&expired).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to query expired pins, %w", err)
	}

	reclaimed := 0

	for i := range expired {
		pin := &expired[i]

		failures := s.deleteObjects(ctx, pin)

		if err := s.DB.Delete(&model.Pin{}, pin.ID).Error; err != nil {
			zap.L().Error("Failed to delete expired pin record",
				zap.String("pin_code", pin.PinCode),
				zap.Error(err),
			)
			s.audit(pin.PinCode, false, fmt.Sprintf("failed to delete pin record: %v", err))
			continue
		}

		if len(failures) > 0 {
			s.audit(pin.PinCode, false,
				fmt.Sprintf("pin deleted, %d storage objects left behind (first: %s)", len(failures), failures[0].Ref))
		} else {
			s.audit(pin.PinCode, true,
				fmt.Sprintf("deleted pin expired at %d", pin.ExpiresAt))
		}

		reclaimed++
	}

	return reclaimed, nil
}

func (s *PinService) audit(pinCode string, ok bool, msg string) {
	err := s.DB.Create(&model.ReclaimLog{
		Timestamp: s.Now().UnixMilli(),
		PinCode:   pinCode,
		OK:        ok,
		Message:   msg,
	}).Error
	if err != nil {
		zap.L().Error("Failed to write reclaim log", zap.String("pin_code", pinCode), zap.Error(err))
	}
}

// ResetDailyCounters rolls over the daily-upload window for every user
// whose window is stale. Pure backstop for the lazy rollover in the
// quota check, and idempotent: a second run right after the first
// matches no rows.
func (s *PinService) ResetDailyCounters(now time.Time) (int64, error) {
	cutoff := now.Add(-quota.RolloverWindow).UnixMilli()

	res := s.DB.
		Model(&model.User{}).
		Where("last_reset_time < ?", cutoff).
		Updates(map[string]any{
			"daily_upload_total": 0,
			"last_reset_time":    now.UnixMilli(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset daily counters, %w", res.Error)
	}

	return res.RowsAffected, nil
}
