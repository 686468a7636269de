package ledger

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"spinledger/models"
)

// Reward is the outcome returned to the caller after a successful spin.
// TryAgain outcomes carry no code; eligibility stays open for exactly one
// more spin that day.
type Reward struct {
	PrizeType  string     `json:"prize_type"`
	PrizeName  string     `json:"prize_name"`
	PrizeValue string     `json:"prize_value"`
	Position   int        `json:"position"`
	TryAgain   bool       `json:"try_again"`
	Code       string     `json:"code,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// PrizeLoader yields the current wheel for a draw.
type PrizeLoader interface {
	Load() (PrizeTable, error)
}

// Issuer draws a weighted-random prize and records the outcome through the
// store. The draw itself is cheap and discardable; the store's atomic write
// is the serialization point, so a lost race costs nothing but the draw.
type Issuer struct {
	store   *Store
	prizes  PrizeLoader
	codeTTL time.Duration
	log     *zap.SugaredLogger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewIssuer(store *Store, prizes PrizeLoader, codeTTL time.Duration, log *zap.SugaredLogger) *Issuer {
	return &Issuer{
		store:   store,
		prizes:  prizes,
		codeTTL: codeTTL,
		log:     log,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Spin checks eligibility, draws a prize, and records the outcome. A caller
// that lost a concurrent race gets ErrRaceLost and no reward, even though a
// prize was already drawn for it.
func (i *Issuer) Spin(id Identity) (*Reward, error) {
	spun, err := i.store.HasSpunToday(id)
	if err != nil {
		return nil, err
	}
	bonus, err := i.store.HasTryAgainChance(id)
	if err != nil {
		return nil, err
	}
	if spun && !bonus {
		return nil, ErrIneligible
	}

	table, err := i.prizes.Load()
	if err != nil {
		return nil, err
	}
	prize := i.draw(table)

	if prize.Type == models.TryAgainType {
		if err := i.store.RecordTryAgainOutcome(id); err != nil {
			return nil, err
		}
		return &Reward{
			PrizeType: prize.Type,
			PrizeName: prize.Name,
			Position:  prize.Position,
			TryAgain:  true,
		}, nil
	}

	now := time.Now()
	expires := now.Add(i.codeTTL)
	code := &models.RewardCode{
		Code:        generateCode(prize.CodePrefix, id, now),
		PhoneNumber: id.PhoneNumber,
		DeviceID:    id.DeviceID,
		PrizeType:   prize.Type,
		PrizeName:   prize.Name,
		PrizeValue:  prize.Value,
		ExpiresAt:   expires,
	}
	if err := i.store.RecordRewardOutcome(id, code, bonus); err != nil {
		return nil, err
	}
	i.log.Infow("reward issued", "prize", prize.Type, "code", code.Code)
	return &Reward{
		PrizeType:  prize.Type,
		PrizeName:  prize.Name,
		PrizeValue: prize.Value,
		Position:   prize.Position,
		Code:       code.Code,
		ExpiresAt:  &expires,
	}, nil
}

// draw walks the cumulative weights with r uniform in [0, total). Should
// accumulation ever overshoot past the last entry, the first prize is the
// documented fallback rather than a panic.
func (i *Issuer) draw(table PrizeTable) models.Prize {
	i.mu.Lock()
	r := i.rnd.Intn(table.TotalWeight)
	i.mu.Unlock()

	acc := 0
	for _, p := range table.Prizes {
		acc += p.Weight
		if r < acc {
			return p
		}
	}
	return table.Prizes[0]
}
