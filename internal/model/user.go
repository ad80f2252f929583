package model

// User mirrors the identity provider's stable user ID and carries the
// per-user quota counters. Rows are created lazily the first time an
// authenticated user hits the API.
type User struct {
	ID    string `gorm:"primaryKey" json:"-"`
	Email string `gorm:"uniqueIndex" json:"email"`

	// Nominal plan label. Empty means derive the tier from the billing
	// provider's current subscription
	Plan string `json:"plan"`
	VIP  bool   `json:"vip"`

	// Bytes uploaded inside the current rolling 24h window and the unix
	// millisecond start of that window. 0 means the window was never opened
	DailyUploadTotal int64 `json:"daily_upload_total"`
	LastResetTime    int64 `json:"last_reset_time"`

	CreatedAt int64 `gorm:"autoCreateTime:milli" json:"created_at"`
}
