// Package user contains the handler logic behind the /api/users endpoints
package user

import (
	"errors"
	"net/http"

	"pindrop/pin-api/internal"
	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/quota"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pinSummary struct {
	PinCode   string `json:"pin_code"`
	Kind      string `json:"kind"`
	ExpiresAt int64  `json:"expires_at"`
}

// Quota reports the caller's plan, current daily usage and per-pin
// expiry overview.
func Quota(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var u model.User
	err := d.DB.Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	sub, err := d.Billing.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to resolve subscription", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	// For display only: a lapsed paid plan reads as free here instead of
	// erroring like the create path does
	tier, err := d.Pins.Enforcer.ResolveTier(&u, sub)
	if err != nil {
		tier = quota.TierFree
	}

	lim, err := d.Pins.Enforcer.Limits(tier)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up tier limits", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	var pins []model.Pin
	err = d.DB.
		Where("owner_id = ?", userID).
		Order("created_at desc").
		Find(&pins).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list pins", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	summaries := make([]pinSummary, len(pins))
	for i, p := range pins {
		summaries[i] = pinSummary{
			PinCode:   p.PinCode,
			Kind:      p.Kind,
			ExpiresAt: p.ExpiresAt,
		}
	}

	remaining := lim.MaxDailyUpload - u.DailyUploadTotal
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":               tier,
		"daily_upload_total": u.DailyUploadTotal,
		"max_daily_upload":   lim.MaxDailyUpload,
		"max_file_size":      lim.MaxFileSize,
		"max_storage_days":   lim.MaxStorageDays,
		"remaining_upload":   remaining,
		"last_reset_time":    u.LastResetTime,
		"pins":               summaries,
	})
}
