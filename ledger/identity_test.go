package ledger

import (
	"errors"
	"testing"
)

func TestResolveIdentityValid(t *testing.T) {
	id, err := ResolveIdentity(" +15551234567 ", "device-fingerprint-aa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.PhoneNumber != "+15551234567" {
		t.Fatalf("phone not trimmed: %q", id.PhoneNumber)
	}
	if id.Key() != "+15551234567|device-fingerprint-aa" {
		t.Fatalf("unexpected key: %q", id.Key())
	}
	if id.PhoneSuffix() != "4567" {
		t.Fatalf("unexpected phone suffix: %q", id.PhoneSuffix())
	}
}

func TestResolveIdentityRejectsBadPhones(t *testing.T) {
	for _, phone := range []string{
		"",
		"15551234567",      // missing +
		"+05551234567",     // leading zero country code
		"+1555123",         // too short
		"+1555123456789012", // too long
		"+1 555 123 4567",  // separators
	} {
		if _, err := ResolveIdentity(phone, "device-fingerprint-aa"); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("phone %q: expected ErrInvalidIdentity, got %v", phone, err)
		}
	}
}

func TestResolveIdentityRejectsBadDeviceIDs(t *testing.T) {
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	for _, device := range []string{"", "short", string(long)} {
		if _, err := ResolveIdentity("+15551234567", device); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("device %q: expected ErrInvalidIdentity, got %v", device, err)
		}
	}
}

func TestPhoneSuffixShortNumber(t *testing.T) {
	id := Identity{PhoneNumber: "+123"}
	if got := id.PhoneSuffix(); got != "123" {
		t.Fatalf("expected whole digit string for short numbers, got %q", got)
	}
}
