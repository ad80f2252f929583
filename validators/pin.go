// Package validators checks request payloads before they reach the core
package validators

import (
	"errors"

	"pindrop/pin-api/internal/quota"
	"pindrop/pin-api/internal/service"
)

var (
	ErrNoContent     = errors.New("content cannot be empty")
	ErrNoImages      = errors.New("at least one image is required")
	ErrTooManyImages = errors.New("at most 10 images are allowed per pin")
	ErrNoFileKey     = errors.New("file key is missing")
	ErrUnknownKind   = errors.New("unknown content kind")
)

const maxImagesPerPin = 10

// PinPayload verifies the kind-specific shape of a create request. Quota
// and tier gating happen later in the enforcer, this only rejects
// requests that could never form a valid pin.
func PinPayload(in *service.CreatePinInput) error {
	switch in.Kind {
	case quota.KindText, quota.KindURL, quota.KindCode:
		if in.Content == "" {
			return ErrNoContent
		}

	case quota.KindImage:
		if len(in.ImageRefs) == 0 {
			return ErrNoImages
		}

	case quota.KindMixed:
		if in.Content == "" && len(in.ImageRefs) == 0 {
			return ErrNoContent
		}

	case quota.KindFile:
		if in.FileKey == "" {
			return ErrNoFileKey
		}

	default:
		return ErrUnknownKind
	}

	if len(in.ImageRefs) > maxImagesPerPin {
		return ErrTooManyImages
	}

	return nil
}
