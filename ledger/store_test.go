package ledger

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"spinledger/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.SpinRecord{}, &models.RewardCode{}, &models.Prize{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, nil, zap.NewNop().Sugar())
}

func mustIdentity(t *testing.T, phone, device string) Identity {
	t.Helper()
	id, err := ResolveIdentity(phone, device)
	if err != nil {
		t.Fatalf("resolve identity: %v", err)
	}
	return id
}

func countSpinRecords(t *testing.T, s *Store) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(&models.SpinRecord{}).Count(&n).Error; err != nil {
		t.Fatalf("count spin records: %v", err)
	}
	return n
}

func TestRecordSpinOncePerDay(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230001", "device-alpha-01")

	if err := s.RecordSpin(id, false); err != nil {
		t.Fatalf("first spin: %v", err)
	}
	if err := s.RecordSpin(id, false); !errors.Is(err, ErrRaceLost) {
		t.Fatalf("second spin expected ErrRaceLost, got %v", err)
	}
	if n := countSpinRecords(t, s); n != 1 {
		t.Fatalf("expected 1 spin record, got %d", n)
	}
}

func TestEligibilityMatchesPhoneOrDevice(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230002", "device-beta-02")
	if err := s.RecordSpin(id, false); err != nil {
		t.Fatalf("spin: %v", err)
	}

	samePhone := mustIdentity(t, "+15551230002", "device-other-99")
	sameDevice := mustIdentity(t, "+15559990000", "device-beta-02")
	fresh := mustIdentity(t, "+15559990001", "device-fresh-77")

	for name, probe := range map[string]Identity{
		"same phone new device": samePhone,
		"same device new phone": sameDevice,
	} {
		spun, err := s.HasSpunToday(probe)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !spun {
			t.Fatalf("%s: expected spun=true", name)
		}
	}

	spun, err := s.HasSpunToday(fresh)
	if err != nil {
		t.Fatalf("fresh identity: %v", err)
	}
	if spun {
		t.Fatal("fresh identity should not be marked as spun")
	}
}

func TestTryAgainFlagFollowsAllMatches(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230003", "device-gamma-03")
	if err := s.RecordTryAgainOutcome(id); err != nil {
		t.Fatalf("try-again outcome: %v", err)
	}

	// Same device under a different number shares the bonus.
	sibling := mustIdentity(t, "+15558880000", "device-gamma-03")
	bonus, err := s.HasTryAgainChance(sibling)
	if err != nil {
		t.Fatalf("bonus check: %v", err)
	}
	if !bonus {
		t.Fatal("device-matched identity should see the bonus")
	}

	if err := s.UseTryAgainChance(sibling); err != nil {
		t.Fatalf("use bonus: %v", err)
	}
	bonus, err = s.HasTryAgainChance(id)
	if err != nil {
		t.Fatalf("bonus re-check: %v", err)
	}
	if bonus {
		t.Fatal("consuming the bonus via a device match must clear the original record")
	}
}

func TestTryAgainThenRewardLeavesOneRecord(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230004", "device-delta-04")

	if err := s.RecordTryAgainOutcome(id); err != nil {
		t.Fatalf("try-again outcome: %v", err)
	}
	spun, _ := s.HasSpunToday(id)
	if spun {
		t.Fatal("a pending bonus must not count as a completed spin")
	}

	code := &models.RewardCode{
		Code:        "OFF10-ABCD-0004-TEST1",
		PhoneNumber: id.PhoneNumber,
		DeviceID:    id.DeviceID,
		PrizeType:   "discount10",
		PrizeName:   "10% OFF",
		PrizeValue:  "10%",
		ExpiresAt:   time.Now().Add(48 * time.Hour),
	}
	if err := s.RecordRewardOutcome(id, code, true); err != nil {
		t.Fatalf("reward outcome: %v", err)
	}

	if n := countSpinRecords(t, s); n != 1 {
		t.Fatalf("expected one record after bonus consumption, got %d", n)
	}
	spun, _ = s.HasSpunToday(id)
	if !spun {
		t.Fatal("reward outcome must close today's eligibility")
	}
	bonus, _ := s.HasTryAgainChance(id)
	if bonus {
		t.Fatal("bonus must be consumed by the reward outcome")
	}
	var saved models.RewardCode
	if err := s.db.Where("code = ?", code.Code).First(&saved).Error; err != nil {
		t.Fatalf("reward code not persisted: %v", err)
	}
}

func TestRewardOutcomeIsAtomic(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230005", "device-epsil-05")

	// Pre-existing code with the same value forces the insert inside the
	// transaction to fail; the spin record must roll back with it.
	clash := &models.RewardCode{
		Code:        "OFF10-CLSH-0005-TEST1",
		PhoneNumber: "+15550000000",
		DeviceID:    "device-other-00",
		PrizeType:   "discount10",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := s.db.Create(clash).Error; err != nil {
		t.Fatalf("seed clashing code: %v", err)
	}

	dup := &models.RewardCode{
		Code:        clash.Code,
		PhoneNumber: id.PhoneNumber,
		DeviceID:    id.DeviceID,
		PrizeType:   "discount10",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := s.RecordRewardOutcome(id, dup, false); err == nil {
		t.Fatal("expected reward outcome to fail on duplicate code")
	}
	if n := countSpinRecords(t, s); n != 0 {
		t.Fatalf("failed outcome must leave no spin record, found %d", n)
	}
}

func TestConcurrentSpinsLandExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230006", "device-zeta-06")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.RecordSpin(id, false)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrRaceLost) && !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("unexpected race error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful spin, got %d", successes)
	}
	if n := countSpinRecords(t, s); n != 1 {
		t.Fatalf("expected exactly one record, got %d", n)
	}
}

func TestDegradedStoreDeniesWritesAndRemembersReads(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230008", "device-theta-08")
	if err := s.RecordSpin(id, false); err != nil {
		t.Fatalf("spin: %v", err)
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	// The memory mirror still answers eligibility reads.
	spun, err := s.HasSpunToday(id)
	if err != nil {
		t.Fatalf("degraded read: %v", err)
	}
	if !spun {
		t.Fatal("memory fallback must remember today's spin")
	}

	// Writes deny rather than grant when the database is down.
	fresh := mustIdentity(t, "+15559990002", "device-iota-09")
	if err := s.RecordSpin(fresh, false); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("degraded write expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCleanupOldRecords(t *testing.T) {
	s := newTestStore(t)
	id := mustIdentity(t, "+15551230007", "device-eta-07")
	if err := s.RecordSpin(id, false); err != nil {
		t.Fatalf("spin: %v", err)
	}

	stale := models.SpinRecord{
		PhoneNumber: "+15550001111",
		DeviceID:    "device-old-11",
		SpinDate:    "2026-07-01",
		Timestamp:   time.Now().Add(-40 * 24 * time.Hour).UnixMilli(),
	}
	if err := s.db.Create(&stale).Error; err != nil {
		t.Fatalf("seed stale record: %v", err)
	}

	if err := s.CleanupOldRecords(30 * 24 * time.Hour); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n := countSpinRecords(t, s); n != 1 {
		t.Fatalf("expected only today's record to survive, got %d", n)
	}
	var remaining models.SpinRecord
	if err := s.db.First(&remaining).Error; err != nil {
		t.Fatalf("load survivor: %v", err)
	}
	if remaining.PhoneNumber != id.PhoneNumber {
		t.Fatalf("wrong record survived the sweep: %s", remaining.PhoneNumber)
	}
}
