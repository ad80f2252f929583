package pin

import (
	"net/http"

	"pindrop/pin-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func FetchBulk(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	views, err := d.Pins.ListOwnedPins(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list pins", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, views)
}
