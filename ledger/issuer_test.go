package ledger

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"spinledger/models"
)

type stubLoader struct {
	table PrizeTable
	err   error
}

func (s stubLoader) Load() (PrizeTable, error) { return s.table, s.err }

func fixedTable(t *testing.T, prizes ...models.Prize) PrizeTable {
	t.Helper()
	table, err := buildTable(prizes)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return table
}

func TestDrawDistributionTracksWeights(t *testing.T) {
	table := fixedTable(t, DefaultPrizes()...)
	issuer := NewIssuer(nil, stubLoader{table: table}, time.Hour, zap.NewNop().Sugar())

	const draws = 100000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		counts[issuer.draw(table).Type]++
	}

	for _, p := range table.Prizes {
		want := float64(p.Weight) / float64(table.TotalWeight)
		got := float64(counts[p.Type]) / draws
		if math.Abs(got-want) > 0.02 {
			t.Fatalf("prize %s: observed %.4f, expected %.4f ±0.02", p.Type, got, want)
		}
	}
}

func TestSpinIssuesCodeAndClosesDay(t *testing.T) {
	store := newTestStore(t)
	table := fixedTable(t, models.Prize{
		Type: "discount10", Name: "10% OFF", Value: "10%", Weight: 1, CodePrefix: "OFF10",
	})
	issuer := NewIssuer(store, stubLoader{table: table}, 48*time.Hour, zap.NewNop().Sugar())
	id := mustIdentity(t, "+15557770001", "device-spin-001")

	reward, err := issuer.Spin(id)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if reward.TryAgain {
		t.Fatal("single-prize wheel must not return try-again")
	}
	if reward.Code == "" || reward.ExpiresAt == nil {
		t.Fatalf("reward missing code or expiry: %+v", reward)
	}
	if remaining := time.Until(*reward.ExpiresAt); remaining < 47*time.Hour || remaining > 49*time.Hour {
		t.Fatalf("expiry not ~48h out: %v", remaining)
	}

	if _, err := issuer.Spin(id); !errors.Is(err, ErrIneligible) {
		t.Fatalf("second spin expected ErrIneligible, got %v", err)
	}
}

func TestSpinTryAgainGrantsOneBonus(t *testing.T) {
	store := newTestStore(t)
	tryAgainOnly := fixedTable(t, models.Prize{
		Type: models.TryAgainType, Name: "Try Again", Weight: 1,
	})
	rewardOnly := fixedTable(t, models.Prize{
		Type: "discount25", Name: "25% OFF", Value: "25%", Weight: 1, CodePrefix: "OFF25",
	})
	id := mustIdentity(t, "+15557770002", "device-spin-002")

	first := NewIssuer(store, stubLoader{table: tryAgainOnly}, 48*time.Hour, zap.NewNop().Sugar())
	reward, err := first.Spin(id)
	if err != nil {
		t.Fatalf("try-again spin: %v", err)
	}
	if !reward.TryAgain || reward.Code != "" {
		t.Fatalf("expected bare try-again reward, got %+v", reward)
	}

	bonus, _ := store.HasTryAgainChance(id)
	if !bonus {
		t.Fatal("try-again draw must leave a pending bonus")
	}

	second := NewIssuer(store, stubLoader{table: rewardOnly}, 48*time.Hour, zap.NewNop().Sugar())
	reward, err = second.Spin(id)
	if err != nil {
		t.Fatalf("bonus spin: %v", err)
	}
	if reward.Code == "" {
		t.Fatal("bonus spin should issue a code")
	}

	if _, err := second.Spin(id); !errors.Is(err, ErrIneligible) {
		t.Fatalf("third spin expected ErrIneligible, got %v", err)
	}

	var codes int64
	if err := store.db.Model(&models.RewardCode{}).Count(&codes).Error; err != nil {
		t.Fatalf("count codes: %v", err)
	}
	if codes != 1 {
		t.Fatalf("expected exactly one issued code, got %d", codes)
	}
}

func TestSpinPropagatesPrizeLoadError(t *testing.T) {
	store := newTestStore(t)
	issuer := NewIssuer(store, stubLoader{err: fmt.Errorf("%w: load prizes", ErrStoreUnavailable)}, time.Hour, zap.NewNop().Sugar())
	id := mustIdentity(t, "+15557770003", "device-spin-003")

	if _, err := issuer.Spin(id); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if n := countSpinRecords(t, store); n != 0 {
		t.Fatalf("failed spin must not write a record, found %d", n)
	}
}
