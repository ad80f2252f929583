// Package pin contains the handler logic behind the /api/pins endpoints
package pin

import (
	"errors"
	"net/http"

	"pindrop/pin-api/internal"
	"pindrop/pin-api/internal/pinerr"
	"pindrop/pin-api/internal/service"
	"pindrop/pin-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Create(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var in service.CreatePinInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.PinPayload(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	result, err := d.Pins.CreatePin(c.Request.Context(), userID, in)
	if err != nil {
		var pe *pinerr.Err
		if errors.As(err, &pe) {
			c.JSON(pe.StatusCode(), gin.H{
				"error":     pe.Error(),
				"retryable": pe.Retryable(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create pin", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, result)
}
