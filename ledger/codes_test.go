package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"spinledger/models"
)

func seedCode(t *testing.T, s *Store, code string, expiresAt time.Time) *models.RewardCode {
	t.Helper()
	rc := &models.RewardCode{
		Code:        code,
		PhoneNumber: "+15556660001",
		DeviceID:    "device-code-001",
		PrizeType:   "discount10",
		PrizeName:   "10% OFF",
		PrizeValue:  "10%",
		ExpiresAt:   expiresAt,
	}
	if err := s.db.Create(rc).Error; err != nil {
		t.Fatalf("seed code: %v", err)
	}
	return rc
}

func TestGenerateCodeFormat(t *testing.T) {
	id := mustIdentity(t, "+15551239876", "device-code-fmt")
	code := generateCode("OFF25", id, time.Now())

	parts := strings.Split(code, "-")
	if len(parts) != 4 {
		t.Fatalf("expected 4 segments, got %q", code)
	}
	if parts[0] != "OFF25" {
		t.Fatalf("wrong prefix: %q", parts[0])
	}
	if len(parts[1]) != 4 {
		t.Fatalf("random block must be 4 chars, got %q", parts[1])
	}
	for _, c := range parts[1] {
		if !strings.ContainsRune(codeCharset, c) {
			t.Fatalf("random block char %q outside charset", c)
		}
	}
	if parts[2] != "9876" {
		t.Fatalf("expected phone suffix 9876, got %q", parts[2])
	}
}

func TestGenerateCodeUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	base := time.Now()
	for i := 0; i < 10000; i++ {
		id := mustIdentity(t, fmt.Sprintf("+1555%07d", i), "device-code-uniq")
		code := generateCode("OFF10", id, base.Add(time.Duration(i)*time.Millisecond))
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = struct{}{}
	}
}

func TestRedeemCodeOnce(t *testing.T) {
	s := newTestStore(t)
	seedCode(t, s, "OFF10-AAAA-0001-TEST1", time.Now().Add(48*time.Hour))

	rc, err := s.RedeemCode("OFF10-AAAA-0001-TEST1")
	if err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if !rc.Redeemed || rc.RedeemedAt == nil {
		t.Fatalf("redeemed state not set: %+v", rc)
	}

	if _, err := s.RedeemCode("OFF10-AAAA-0001-TEST1"); !errors.Is(err, ErrCodeAlreadyRedeemed) {
		t.Fatalf("second redeem expected ErrCodeAlreadyRedeemed, got %v", err)
	}

	var saved models.RewardCode
	if err := s.db.Where("code = ?", "OFF10-AAAA-0001-TEST1").First(&saved).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if saved.RedeemedAt == nil || !saved.RedeemedAt.Equal(*rc.RedeemedAt) {
		t.Fatal("second attempt must not touch the redemption timestamp")
	}
}

func TestRedeemExpiredCode(t *testing.T) {
	s := newTestStore(t)
	seedCode(t, s, "OFF10-BBBB-0001-TEST1", time.Now().Add(-time.Minute))

	if _, err := s.RedeemCode("OFF10-BBBB-0001-TEST1"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	var saved models.RewardCode
	if err := s.db.Where("code = ?", "OFF10-BBBB-0001-TEST1").First(&saved).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if saved.Redeemed {
		t.Fatal("expired code must stay unredeemed")
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RedeemCode("OFF10-ZZZZ-0000-NOPE"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestLookupCode(t *testing.T) {
	s := newTestStore(t)
	seedCode(t, s, "OFF10-CCCC-0001-TEST1", time.Now().Add(time.Hour))

	rc, err := s.LookupCode("OFF10-CCCC-0001-TEST1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rc.PrizeType != "discount10" {
		t.Fatalf("unexpected prize type: %q", rc.PrizeType)
	}
	if _, err := s.LookupCode("missing"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}
