package models

import "time"

// Prize is one wheel segment. Position mirrors the visual segment order of
// the storefront wheel, so it must not be reordered independently of the UI.
// Weight is a non-negative integer; the sum over all rows is the sampling
// denominator for the weighted draw.
type Prize struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Type       string    `gorm:"size:32;uniqueIndex;not null" json:"type"`
	Name       string    `gorm:"size:64;not null" json:"name"`
	Value      string    `gorm:"size:64" json:"value"`
	Weight     int       `gorm:"not null" json:"weight"`
	CodePrefix string    `gorm:"size:12;not null" json:"code_prefix"`
	Color      string    `gorm:"size:16" json:"color"`
	Position   int       `gorm:"not null;index" json:"position"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

func (Prize) TableName() string {
	return "prizes"
}

// TryAgainType is the sentinel prize type that grants one extra spin on the
// same day instead of issuing a reward code.
const TryAgainType = "try_again"
