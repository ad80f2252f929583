package service

import (
	"fmt"
	"math/rand"
	"strconv"

	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"

	"gorm.io/gorm"
)

const (
	// Codes are 6 decimal digits with no leading zero
	codeMin  = 100000
	codeSpan = 900000

	// With ~900k possible codes this many consecutive collisions means the
	// code space is effectively exhausted and drawing forever won't help
	maxAllocAttempts = 50
)

// CodeAllocator hands out pin codes that are free among live pins at the
// time of the check. The check-then-insert sequence is racy against
// concurrent creators; the unique index on pin_code is the backstop and
// the create path redraws on a duplicate-key insert.
type CodeAllocator struct {
	DB *gorm.DB

	// draw is swappable in tests to force collisions
	draw func() string
}

func NewCodeAllocator(db *gorm.DB) *CodeAllocator {
	return &CodeAllocator{
		DB: db,
		draw: func() string {
			return strconv.Itoa(codeMin + rand.Intn(codeSpan))
		},
	}
}

func (a *CodeAllocator) Allocate() (string, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		code := a.draw()

		var n int64
		err := a.DB.
			Model(&model.Pin{}).
			Where("pin_code = ?", code).
			Count(&n).
			Error
		if err != nil {
			return "", fmt.Errorf("failed to check pin code for collisions, %w", err)
		}

		if n == 0 {
			return code, nil
		}
	}

	return "", pinerr.New(pinerr.CodePinCodeConflict,
		fmt.Sprintf("failed to allocate a free pin code after %d attempts", maxAllocAttempts))
}
