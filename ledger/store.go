package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spinledger/models"
)

// Store is the single source of truth for spin eligibility and issued
// reward codes. All SpinRecord and RewardCode rows are owned and mutated
// here exclusively. Reads fall back to an in-process mirror when the
// database is unreachable; writes that cannot reach the database fail with
// ErrStoreUnavailable so that a broken store denies spins instead of
// granting extras.
type Store struct {
	db     *gorm.DB
	mem    *memStore
	events EventSink
	log    *zap.SugaredLogger
}

// NewStore wires the durable store. events may be nil when no broadcast
// channel is configured.
func NewStore(db *gorm.DB, events EventSink, log *zap.SugaredLogger) *Store {
	return &Store{db: db, mem: newMemStore(), events: events, log: log}
}

// localDate renders the server-local calendar day the ledger is keyed on.
func localDate(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02")
}

// HasSpunToday reports whether a record matching the identity by phone OR
// device exists for today with no unconsumed bonus. Matching on either
// component is the anti-abuse property: swapping only the device or only
// the number must not grant a fresh spin.
func (s *Store) HasSpunToday(id Identity) (bool, error) {
	today := localDate(time.Now())
	var count int64
	err := s.db.Model(&models.SpinRecord{}).
		Where("(phone_number = ? OR device_id = ?) AND spin_date = ? AND got_try_again = ?",
			id.PhoneNumber, id.DeviceID, today, false).
		Count(&count).Error
	if err != nil {
		s.log.Warnw("eligibility read fell back to memory", "err", err)
		spun, _ := s.mem.hasSpun(id, today)
		return spun, nil
	}
	return count > 0, nil
}

// HasTryAgainChance reports whether today holds an unconsumed bonus spin for
// the identity.
func (s *Store) HasTryAgainChance(id Identity) (bool, error) {
	today := localDate(time.Now())
	var count int64
	err := s.db.Model(&models.SpinRecord{}).
		Where("(phone_number = ? OR device_id = ?) AND spin_date = ? AND got_try_again = ?",
			id.PhoneNumber, id.DeviceID, today, true).
		Count(&count).Error
	if err != nil {
		s.log.Warnw("bonus read fell back to memory", "err", err)
		_, bonus := s.mem.hasSpun(id, today)
		return bonus, nil
	}
	return count > 0, nil
}

// RecordSpin performs the authoritative conditional upsert: it re-checks
// eligibility and writes inside one transaction, so of two concurrent
// callers exactly one lands the record and the other gets ErrRaceLost.
func (s *Store) RecordSpin(id Identity, gotTryAgain bool) error {
	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.recordSpinTx(tx, id, gotTryAgain, now)
	})
	if err != nil {
		return s.wrapWriteErr("record spin", err)
	}
	s.mem.put(id, localDate(now), gotTryAgain, now.UnixMilli())
	s.publish(EventSpinRecorded, id, now)
	return nil
}

// recordSpinTx holds the serialization point. Matching rows are locked, the
// eligibility condition is re-evaluated under the lock, and the exact-pair
// row for today is replaced. The unique (phone, device, day) index backstops
// two inserts racing past an empty lock set.
func (s *Store) recordSpinTx(tx *gorm.DB, id Identity, gotTryAgain bool, now time.Time) error {
	today := localDate(now)

	var matches []models.SpinRecord
	if err := forUpdate(tx).
		Where("(phone_number = ? OR device_id = ?) AND spin_date = ?",
			id.PhoneNumber, id.DeviceID, today).
		Find(&matches).Error; err != nil {
		return err
	}
	for _, m := range matches {
		if !m.GotTryAgain {
			return ErrRaceLost
		}
	}

	// Replace rather than append: at most one active row per identity per day.
	if err := tx.Where("phone_number = ? AND device_id = ? AND spin_date = ?",
		id.PhoneNumber, id.DeviceID, today).
		Delete(&models.SpinRecord{}).Error; err != nil {
		return err
	}

	rec := models.SpinRecord{
		PhoneNumber: id.PhoneNumber,
		DeviceID:    id.DeviceID,
		SpinDate:    today,
		GotTryAgain: gotTryAgain,
		Timestamp:   now.UnixMilli(),
	}
	if err := tx.Create(&rec).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrRaceLost
		}
		return err
	}
	return nil
}

// MarkAsTryAgain flips the bonus flag on ALL of today's records matching the
// identity by phone or device. Updating every match keeps eligibility from
// splitting when a user alternates numbers on one device or vice versa.
func (s *Store) MarkAsTryAgain(id Identity) error {
	return s.setTryAgain(id, true, EventTryAgainMarked)
}

// UseTryAgainChance consumes the bonus on all of today's matching records
// once a non-try-again outcome lands.
func (s *Store) UseTryAgainChance(id Identity) error {
	return s.setTryAgain(id, false, EventTryAgainUsed)
}

func (s *Store) setTryAgain(id Identity, v bool, event string) error {
	now := time.Now()
	today := localDate(now)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return setTryAgainTx(tx, id, today, v, now)
	})
	if err != nil {
		return s.wrapWriteErr("set try-again", err)
	}
	s.mem.setTryAgain(id, today, v)
	s.publish(event, id, now)
	return nil
}

func setTryAgainTx(tx *gorm.DB, id Identity, today string, v bool, now time.Time) error {
	return tx.Model(&models.SpinRecord{}).
		Where("(phone_number = ? OR device_id = ?) AND spin_date = ?",
			id.PhoneNumber, id.DeviceID, today).
		Updates(map[string]interface{}{
			"got_try_again": v,
			"timestamp":     now.UnixMilli(),
		}).Error
}

// RecordTryAgainOutcome applies a "Try Again" draw as one transaction: the
// spin is recorded with the bonus flag and every matching row is marked, so
// a failed call leaves no partial state behind.
func (s *Store) RecordTryAgainOutcome(id Identity) error {
	now := time.Now()
	today := localDate(now)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.recordSpinTx(tx, id, true, now); err != nil {
			return err
		}
		return setTryAgainTx(tx, id, today, true, now)
	})
	if err != nil {
		return s.wrapWriteErr("record try-again outcome", err)
	}
	s.mem.put(id, today, true, now.UnixMilli())
	s.mem.setTryAgain(id, today, true)
	s.publish(EventSpinRecorded, id, now)
	s.publish(EventTryAgainMarked, id, now)
	return nil
}

// RecordRewardOutcome applies a prize-winning draw and its reward code as
// one transaction. hadBonus tells the store the spin consumed a try-again
// chance, which is then cleared on every matching row.
func (s *Store) RecordRewardOutcome(id Identity, code *models.RewardCode, hadBonus bool) error {
	now := time.Now()
	today := localDate(now)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.recordSpinTx(tx, id, false, now); err != nil {
			return err
		}
		if hadBonus {
			if err := setTryAgainTx(tx, id, today, false, now); err != nil {
				return err
			}
		}
		if code != nil {
			if err := tx.Create(code).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.wrapWriteErr("record reward outcome", err)
	}
	s.mem.put(id, today, false, now.UnixMilli())
	if hadBonus {
		s.mem.setTryAgain(id, today, false)
	}
	s.publish(EventSpinRecorded, id, now)
	if hadBonus {
		s.publish(EventTryAgainUsed, id, now)
	}
	return nil
}

// CleanupOldRecords deletes SpinRecords whose last write is older than the
// retention window. RewardCodes are kept forever for audit lookups.
func (s *Store) CleanupOldRecords(retention time.Duration) error {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := s.db.Where("timestamp < ?", cutoff).Delete(&models.SpinRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Infof("retention sweep removed %d spin records", res.RowsAffected)
	}
	return nil
}

func (s *Store) wrapWriteErr(op string, err error) error {
	if errors.Is(err, ErrRaceLost) {
		s.log.Debugw("ledger write rejected by re-check", "op", op)
		return ErrRaceLost
	}
	s.log.Errorw("ledger write failed", "op", op, "err", err)
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, op)
}

func (s *Store) publish(eventType string, id Identity, at time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Type:        eventType,
		PhoneNumber: id.PhoneNumber,
		DeviceID:    id.DeviceID,
		Timestamp:   at.UnixMilli(),
	})
}

// forUpdate applies a row lock on dialects that support it. SQLite, used by
// the test suite, serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
