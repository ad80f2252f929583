package pin

import (
	"errors"
	"net/http"
	"strconv"

	"pindrop/pin-api/internal"
	"pindrop/pin-api/internal/pinerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Delete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Pin ID must be a number",
			"requestID": requestID,
		})
		return
	}

	failures, err := d.Pins.DeletePin(c.Request.Context(), userID, uint(id))
	if err != nil {
		var pe *pinerr.Err
		if errors.As(err, &pe) {
			c.JSON(pe.StatusCode(), gin.H{
				"error":     pe.Error(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete pin", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	// Leftover objects are reported, not fatal: the pin record is gone
	c.JSON(http.StatusOK, gin.H{
		"deleted":         true,
		"object_failures": failures,
	})
}
