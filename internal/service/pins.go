package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pindrop/pin-api/internal/billing"
	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"
	"pindrop/pin-api/internal/quota"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// How often the create path re-reads the quota counters when a
// concurrent creation for the same user moved them underneath us, and
// how often it redraws after losing the pin-code insert race
const createAttempts = 5

var errQuotaContention = errors.New("quota counter moved concurrently")

// PinService is the lifecycle manager. It owns every state transition a
// pin can make: nonexistent -> live -> deleted/reclaimed.
type PinService struct {
	DB       *gorm.DB
	Storage  ObjectStorage
	Billing  billing.Provider
	Enforcer *quota.Enforcer
	Alloc    *CodeAllocator
	Now      func() time.Time
}

func NewPinService(db *gorm.DB, st ObjectStorage, b billing.Provider, table quota.Table) *PinService {
	return &PinService{
		DB:       db,
		Storage:  st,
		Billing:  b,
		Enforcer: quota.NewEnforcer(table),
		Alloc:    NewCodeAllocator(db),
		Now:      time.Now,
	}
}

type CreatePinInput struct {
	Kind      quota.Kind `json:"kind"`
	Content   string     `json:"content"`
	ImageRefs []string   `json:"image_refs"`
	Language  string     `json:"language"`
	FileType  string     `json:"file_type"`
	FileKey   string     `json:"file_key"`
	FileSize  int64      `json:"file_size"`
}

type CreatePinResult struct {
	PinCode string `json:"pin_code"`
	PinID   uint   `json:"pin_id"`
}

// CreatePin runs the quota check, allocates a code and persists the pin
// together with the updated daily counter. Nothing is persisted on any
// rejection. The counter write is conditional on the value the check
// read, so two concurrent creations for one user can't jointly slip past
// the daily limit; the loser re-reads and re-evaluates.
func (s *PinService) CreatePin(ctx context.Context, ownerID string, in CreatePinInput) (*CreatePinResult, error) {
	var user model.User

	err := s.DB.Where("id = ?", ownerID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pinerr.New(pinerr.CodeNotFound, "user not found")
		}

		return nil, fmt.Errorf("failed to load user, %w", err)
	}

	sub, err := s.Billing.GetSubscription(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription, %w", err)
	}

	proposed, err := s.proposedBytes(ctx, in)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		dec, err := s.Enforcer.Evaluate(&user, sub, in.Kind, proposed)
		if err != nil {
			return nil, err
		}

		code, err := s.Alloc.Allocate()
		if err != nil {
			return nil, err
		}

		pin := buildPin(code, ownerID, in, dec, s.Now().UnixMilli())

		err = s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(pin).Error; err != nil {
				return err
			}

			res := tx.
				Model(&model.User{}).
				Where("id = ? AND daily_upload_total = ?", ownerID, user.DailyUploadTotal).
				Updates(map[string]any{
					"daily_upload_total": dec.NewDailyTotal,
					"last_reset_time":    dec.LastResetTime,
				})
			if res.Error != nil {
				return res.Error
			}

			if res.RowsAffected == 0 {
				return errQuotaContention
			}

			return nil
		})

		switch {
		case err == nil:
			return &CreatePinResult{PinCode: pin.PinCode, PinID: pin.ID}, nil

		case errors.Is(err, gorm.ErrDuplicatedKey):
			// Another writer claimed the same code between the allocator's
			// lookup and our insert. Draw again
			zap.L().Debug("Pin code insert race, redrawing", zap.String("pin_code", code))
			continue

		case errors.Is(err, errQuotaContention):
			if err := s.DB.Where("id = ?", ownerID).First(&user).Error; err != nil {
				return nil, fmt.Errorf("failed to reload user, %w", err)
			}
			continue

		default:
			return nil, fmt.Errorf("failed to persist pin, %w", err)
		}
	}

	return nil, pinerr.New(pinerr.CodePinCodeConflict,
		fmt.Sprintf("failed to create pin after %d attempts", createAttempts))
}

// proposedBytes sums the declared file size and the actual sizes of all
// referenced images as reported by the storage backend. Refs whose
// metadata is missing count as zero; the reclamation sweep picks up such
// orphans later.
func (s *PinService) proposedBytes(ctx context.Context, in CreatePinInput) (int64, error) {
	total := in.FileSize

	for _, ref := range in.ImageRefs {
		meta, err := s.Storage.GetMetadata(ctx, ref)
		if err != nil {
			if pinerr.Is(err, pinerr.CodeNotFound) {
				zap.L().Warn("Image ref has no metadata record", zap.String("ref", ref))
				continue
			}

			return 0, fmt.Errorf("failed to size image ref, %w", err)
		}

		total += meta.Size
	}

	return total, nil
}

type mixedSummary struct {
	Text       string `json:"text"`
	ImageCount int    `json:"imageCount"`
}

func buildPin(code, ownerID string, in CreatePinInput, dec *quota.Decision, now int64) *model.Pin {
	p := &model.Pin{
		PinCode:   code,
		Kind:      string(in.Kind),
		OwnerID:   ownerID,
		CreatedAt: now,
		ExpiresAt: dec.ExpiresAt,
	}

	switch in.Kind {
	case quota.KindText, quota.KindURL:
		p.Content = in.Content

	case quota.KindCode:
		p.Content = in.Content
		p.Language = in.Language

	case quota.KindImage:
		if len(in.ImageRefs) > 0 {
			p.Content = in.ImageRefs[0]
		}
		p.ImageRefs = in.ImageRefs

	case quota.KindMixed:
		p.TextContent = in.Content
		p.ImageRefs = in.ImageRefs

		b, _ := json.Marshal(mixedSummary{
			Text:       in.Content,
			ImageCount: len(in.ImageRefs),
		})
		p.Content = string(b)

	case quota.KindFile:
		p.Content = in.Content
		p.FileType = in.FileType
		p.FileKey = in.FileKey
		p.FileSize = in.FileSize
	}

	return p
}

// PinView is a pin enriched with fetchable image URLs. A nil entry means
// that ref could not be resolved; its position is preserved.
type PinView struct {
	model.Pin
	ImageURLs []*string `json:"image_urls,omitempty"`
}

// GetPinByCode resolves a live pin by its 6-digit code. Returns
// (nil, nil) when no such pin exists.
func (s *PinService) GetPinByCode(ctx context.Context, code string) (*PinView, error) {
	var pin model.Pin

	err := s.DB.Where("pin_code = ?", code).First(&pin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to look up pin, %w", err)
	}

	return s.enrich(ctx, &pin), nil
}

// ListOwnedPins returns all live pins for ownerID, newest first, each
// enriched with resolved image URLs.
func (s *PinService) ListOwnedPins(ctx context.Context, ownerID string) ([]*PinView, error) {
	var pins []model.Pin

	err := s.DB.
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&pins).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pins, %w", err)
	}

	views := make([]*PinView, len(pins))
	for i := range pins {
		views[i] = s.enrich(ctx, &pins[i])
	}

	return views, nil
}

func (s *PinService) enrich(ctx context.Context, pin *model.Pin) *PinView {
	v := &PinView{Pin: *pin}

	if pin.Kind != string(quota.KindImage) && pin.Kind != string(quota.KindMixed) {
		return v
	}

	// One ref failing to resolve degrades that entry to nil, it never
	// fails the whole read
	v.ImageURLs = make([]*string, len(pin.ImageRefs))
	for i, ref := range pin.ImageRefs {
		url, err := s.Storage.AccessURL(ctx, ref)
		if err != nil {
			zap.L().Warn("Failed to resolve image URL",
				zap.String("pin_code", pin.PinCode),
				zap.String("ref", ref),
				zap.Error(err),
			)
			continue
		}

		v.ImageURLs[i] = &url
	}

	return v
}

// ObjectFailure reports one storage object that could not be deleted
// while its pin was being removed.
type ObjectFailure struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// DeletePin removes a pin owned by ownerID along with every storage
// object it references. Object deletion is best-effort per object: one
// failure never blocks the others or the record deletion, but each one
// is reported back.
func (s *PinService) DeletePin(ctx context.Context, ownerID string, pinID uint) ([]ObjectFailure, error) {
	var pin model.Pin

	err := s.DB.Where("id = ?", pinID).First(&pin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pinerr.New(pinerr.CodeNotFound, "pin not found")
		}

		return nil, fmt.Errorf("failed to look up pin, %w", err)
	}

	if pin.OwnerID != ownerID {
		return nil, pinerr.New(pinerr.CodeUnauthorized, "you don't own this pin")
	}

	failures := s.deleteObjects(ctx, &pin)

	if err := s.DB.Delete(&model.Pin{}, pin.ID).Error; err != nil {
		return failures, fmt.Errorf("failed to delete pin record, %w", err)
	}

	return failures, nil
}

func (s *PinService) deleteObjects(ctx context.Context, pin *model.Pin) []ObjectFailure {
	refs := make([]string, 0, len(pin.ImageRefs)+1)
	refs = append(refs, pin.ImageRefs...)
	if pin.FileKey != "" {
		refs = append(refs, pin.FileKey)
	}

	var failures []ObjectFailure

	for _, ref := range refs {
		if err := s.Storage.Delete(ctx, ref); err != nil {
			zap.L().Error("Failed to delete storage object",
				zap.String("pin_code", pin.PinCode),
				zap.String("ref", ref),
				zap.Error(err),
			)

			failures = append(failures, ObjectFailure{Ref: ref, Reason: err.Error()})
		}
	}

	return failures
}
