package ledger

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"spinledger/models"
)

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I, codes are read aloud

// generateCode builds a human-shareable redemption code:
// {PRIZE_PREFIX}-{RANDOM4}-{PHONE_SUFFIX}-{TIMESTAMP36}. The random block is
// crypto-strength; the timestamp block makes same-millisecond collisions the
// only ones the random block has to absorb.
func generateCode(prefix string, id Identity, now time.Time) string {
	random := make([]byte, 4)
	for i := range random {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			v = big.NewInt(now.UnixNano() % int64(len(codeCharset)))
		}
		random[i] = codeCharset[v.Int64()]
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%s-%s", prefix, random, id.PhoneSuffix(), ts)
}

// LookupCode fetches a reward code for the admin validator. Read-only.
func (s *Store) LookupCode(code string) (*models.RewardCode, error) {
	var rc models.RewardCode
	err := s.db.Where("code = ?", code).First(&rc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		s.log.Errorw("code lookup failed", "err", err)
		return nil, fmt.Errorf("%w: lookup code", ErrStoreUnavailable)
	}
	return &rc, nil
}

// RedeemCode flips a code to redeemed exactly once. The row is locked so a
// double submit cannot set RedeemedAt twice; the second caller is told the
// code was already redeemed. Expired codes are refused even when unredeemed.
func (s *Store) RedeemCode(code string) (*models.RewardCode, error) {
	var rc models.RewardCode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			Where("code = ?", code).First(&rc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return err
		}
		if rc.Redeemed {
			return ErrCodeAlreadyRedeemed
		}
		if time.Now().After(rc.ExpiresAt) {
			return ErrCodeExpired
		}
		now := time.Now()
		rc.Redeemed = true
		rc.RedeemedAt = &now
		return tx.Model(&models.RewardCode{}).
			Where("id = ?", rc.ID).
			Updates(map[string]interface{}{"redeemed": true, "redeemed_at": now}).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrCodeNotFound), errors.Is(err, ErrCodeAlreadyRedeemed), errors.Is(err, ErrCodeExpired):
			return nil, err
		default:
			s.log.Errorw("code redemption failed", "err", err)
			return nil, fmt.Errorf("%w: redeem code", ErrStoreUnavailable)
		}
	}
	return &rc, nil
}
