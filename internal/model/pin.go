// Package model defines database models
package model

// Pin is the central record. Only the fields implied by Kind are
// populated, everything else keeps its zero value.
type Pin struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Human-facing lookup key, 6 decimal digits. The unique index is the
	// backstop for the allocator's check-then-insert race
	PinCode string `gorm:"uniqueIndex;not null" json:"pin_code"`

	Kind string `gorm:"not null" json:"kind"`

	// Raw text for text/url/code, the first image ref for image, a JSON
	// summary for mixed, the fetchable URL for file
	Content string `json:"content"`

	TextContent string      `json:"text_content,omitempty"` // mixed only
	ImageRefs   StringSlice `json:"image_refs,omitempty"`   // display order
	Language    string      `json:"language,omitempty"`     // code only

	FileType string `json:"file_type,omitempty"`
	FileKey  string `json:"file_key,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`

	OwnerID string `gorm:"index;not null" json:"-"`

	// Unix millisecond timestamps. ExpiresAt is fixed at creation from the
	// owner's tier and never re-evaluated
	CreatedAt int64 `gorm:"not null" json:"created_at"`
	ExpiresAt int64 `gorm:"index;not null" json:"expires_at"`
}
