package models

import "time"

// RewardCode is a redeemable token issued for prize outcomes that require a
// claim step. Rows are mutated exactly once (redeemed flips false to true)
// and are never deleted, so admins can audit old codes.
type RewardCode struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Code        string     `gorm:"size:40;uniqueIndex;not null" json:"code"`
	PhoneNumber string     `gorm:"size:20;index;not null" json:"phone_number"`
	DeviceID    string     `gorm:"size:64;index;not null" json:"device_id"`
	PrizeType   string     `gorm:"size:32;not null" json:"prize_type"`
	PrizeName   string     `gorm:"size:64;not null" json:"prize_name"`
	PrizeValue  string     `gorm:"size:64" json:"prize_value"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	Redeemed    bool       `gorm:"not null;default:false" json:"redeemed"`
	RedeemedAt  *time.Time `json:"redeemed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
