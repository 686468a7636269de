package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"spinledger/models"
	"spinledger/utils"
)

const prizeCacheKey = "spin:prizes"

// PrizeTable is the ordered wheel loaded for a draw. Order follows the
// Position column and must stay aligned with the storefront wheel segments.
type PrizeTable struct {
	Prizes      []models.Prize
	TotalWeight int
}

// DefaultPrizes is the wheel the service seeds on first boot. Weights sum
// to 100.
func DefaultPrizes() []models.Prize {
	return []models.Prize{
		{Type: "discount10", Name: "10% OFF", Value: "10%", Weight: 20, CodePrefix: "OFF10", Color: "#f59e0b", Position: 0},
		{Type: "discount15", Name: "15% OFF", Value: "15%", Weight: 20, CodePrefix: "OFF15", Color: "#10b981", Position: 1},
		{Type: "discount25", Name: "25% OFF", Value: "25%", Weight: 10, CodePrefix: "OFF25", Color: "#3b82f6", Position: 2},
		{Type: "discount50", Name: "50% OFF", Value: "50%", Weight: 5, CodePrefix: "OFF50", Color: "#8b5cf6", Position: 3},
		{Type: "free_account", Name: "Free Account", Value: "1 month", Weight: 5, CodePrefix: "FREE", Color: "#ef4444", Position: 4},
		{Type: models.TryAgainType, Name: "Try Again", Value: "", Weight: 40, CodePrefix: "", Color: "#6b7280", Position: 5},
	}
}

// PrizeSource loads the wheel from MySQL with a Redis JSON cache in front.
type PrizeSource struct {
	db       *gorm.DB
	cacheTTL time.Duration
	log      *zap.SugaredLogger
}

func NewPrizeSource(db *gorm.DB, cacheTTL time.Duration, log *zap.SugaredLogger) *PrizeSource {
	return &PrizeSource{db: db, cacheTTL: cacheTTL, log: log}
}

// Seed inserts the default wheel when the prizes table is empty.
func (p *PrizeSource) Seed() error {
	var count int64
	if err := p.db.Model(&models.Prize{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := p.db.Create(DefaultPrizes()).Error; err != nil {
		return err
	}
	p.log.Info("seeded default prize wheel")
	return nil
}

// Load returns the current wheel, cache first.
func (p *PrizeSource) Load() (PrizeTable, error) {
	if b, ok := utils.CacheGetBytes(prizeCacheKey); ok {
		var prizes []models.Prize
		if err := json.Unmarshal(b, &prizes); err == nil && len(prizes) > 0 {
			return buildTable(prizes)
		}
	}

	var prizes []models.Prize
	if err := p.db.Order("position ASC").Find(&prizes).Error; err != nil {
		return PrizeTable{}, fmt.Errorf("%w: load prizes", ErrStoreUnavailable)
	}
	if len(prizes) == 0 {
		return PrizeTable{}, errors.New("prize table is empty")
	}
	utils.CacheSetJSON(prizeCacheKey, prizes, p.cacheTTL)
	return buildTable(prizes)
}

// Replace swaps the whole wheel in one transaction and drops the cache.
// Weights are validated by the caller; Replace only refuses an all-zero
// denominator.
func (p *PrizeSource) Replace(prizes []models.Prize) error {
	total := 0
	for _, pr := range prizes {
		if pr.Weight < 0 {
			return fmt.Errorf("prize %q has negative weight", pr.Type)
		}
		total += pr.Weight
	}
	if len(prizes) == 0 || total == 0 {
		return errors.New("prize table must contain at least one positive weight")
	}
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Prize{}).Error; err != nil {
			return err
		}
		return tx.Create(prizes).Error
	})
	if err != nil {
		return err
	}
	utils.InvalidateByPrefix(prizeCacheKey)
	return nil
}

func buildTable(prizes []models.Prize) (PrizeTable, error) {
	total := 0
	for _, pr := range prizes {
		if pr.Weight < 0 {
			return PrizeTable{}, fmt.Errorf("prize %q has negative weight", pr.Type)
		}
		total += pr.Weight
	}
	if total <= 0 {
		return PrizeTable{}, errors.New("prize table has zero total weight")
	}
	return PrizeTable{Prizes: prizes, TotalWeight: total}, nil
}
