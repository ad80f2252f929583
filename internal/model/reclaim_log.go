package model

// ReclaimLog is an append-only audit trail for the expiration sweep.
// One row per processed pin, success or failure, so leftover storage
// objects can be cleaned up by hand.
type ReclaimLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp int64  `gorm:"not null;index" json:"timestamp"`
	PinCode   string `json:"pin_code"`
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
}
