package internal

import (
	"pindrop/pin-api/aws"
	"pindrop/pin-api/internal/billing"
	"pindrop/pin-api/internal/service"

	"gorm.io/gorm"
)

type Deps struct {
	DB      *gorm.DB
	S3      *aws.S3Client
	Billing billing.Provider
	Pins    *service.PinService
	Uploads *service.UploadCoordinator
}
