// Package upload contains the handler logic for the two-phase file upload
package upload

import (
	"net/http"

	"pindrop/pin-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type beginRequest struct {
	FileName string `json:"file_name" binding:"required"`
}

// Begin issues a presigned upload target. The client PUTs the file bytes
// there directly and then calls finalize with the returned key.
func Begin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var req beginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "file_name is required",
			"requestID": requestID,
		})
		return
	}

	session, err := d.Uploads.Begin(c.Request.Context(), req.FileName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to begin upload", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, session)
}
