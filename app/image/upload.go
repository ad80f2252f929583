// Package image contains the handler logic for the server-relayed image upload
package image

import (
	"net/http"
	"path"

	"pindrop/pin-api/internal"
	"pindrop/pin-api/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// Upload relays a pin image to object storage and returns the opaque ref
// a create-pin request references it by. Images go through the server so
// they can be content-sniffed; large files use the presigned path.
func Upload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No image provided",
			"requestID": requestID,
		})
		return
	}

	code, f, err := validators.ImageValidator(fh)
	if err != nil {
		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	id, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate storage key", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	key := id + path.Ext(fh.Filename)

	err = d.S3.Upload(c.Request.Context(), key, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upload image", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ref": key})
}
