package pin

import (
	"net/http"

	"pindrop/pin-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func validCode(code string) bool {
	if len(code) != 6 || code[0] == '0' {
		return false
	}

	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// Fetch resolves a pin by its 6-digit code. Public endpoint, so the
// router rate-limits it against code scanning.
func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	code := c.Param("code")
	if !validCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Pin code must be 6 digits",
			"requestID": requestID,
		})
		return
	}

	view, err := d.Pins.GetPinByCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch pin", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Pin not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, view)
}
