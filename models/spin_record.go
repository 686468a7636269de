package models

import "time"

// SpinRecord stores the per-identity daily spin state. One active row exists
// per (phone, device) pair and calendar day; a new spin on the same day
// replaces the previous row instead of appending.
type SpinRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber string    `gorm:"size:20;not null;index:idx_spin_phone_date;uniqueIndex:idx_spin_identity_date" json:"phone_number"`
	DeviceID    string    `gorm:"size:64;not null;index:idx_spin_device_date;uniqueIndex:idx_spin_identity_date" json:"device_id"`
	SpinDate    string    `gorm:"size:10;not null;index;index:idx_spin_phone_date;index:idx_spin_device_date;uniqueIndex:idx_spin_identity_date" json:"spin_date"` // local calendar date YYYY-MM-DD
	GotTryAgain bool      `gorm:"not null;default:false" json:"got_try_again"`
	Timestamp   int64     `gorm:"not null" json:"timestamp"` // unix millis of last write, retention only
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
