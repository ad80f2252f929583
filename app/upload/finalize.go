package upload

import (
	"errors"
	"net/http"

	"pindrop/pin-api/internal"
	"pindrop/pin-api/internal/pinerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type finalizeRequest struct {
	Key string `json:"key" binding:"required"`
}

// Finalize reconciles an uploaded object's metadata. A sync-timeout
// response is retryable: the client may call finalize again for the
// same key once the backend has caught up.
func Finalize(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "key is required",
			"requestID": requestID,
		})
		return
	}

	result, err := d.Uploads.Finalize(c.Request.Context(), req.Key)
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

		zap.L().Error("Failed to finalize upload", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, result)
}
