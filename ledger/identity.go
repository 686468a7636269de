package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

// Identity is the (phone, device) pair eligibility is keyed on. The phone
// number reaches this service already E.164-normalized and OTP-verified by
// the upstream identity-proofing step; the device id is a client-generated
// fingerprint and is never trusted on its own.
type Identity struct {
	PhoneNumber string
	DeviceID    string
}

// e164 matches a normalized international number: leading +, country code,
// 7 to 14 further digits, no separators.
var e164 = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

const (
	deviceIDMinLen = 8
	deviceIDMaxLen = 64
)

// ResolveIdentity validates both components and returns the identity used
// for all eligibility checks. Pure function, no side effects.
func ResolveIdentity(phoneNumber, deviceID string) (Identity, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	deviceID = strings.TrimSpace(deviceID)
	if !e164.MatchString(phoneNumber) {
		return Identity{}, fmt.Errorf("%w: phone number must be E.164 normalized", ErrInvalidIdentity)
	}
	if len(deviceID) < deviceIDMinLen || len(deviceID) > deviceIDMaxLen {
		return Identity{}, fmt.Errorf("%w: device id length out of range", ErrInvalidIdentity)
	}
	return Identity{PhoneNumber: phoneNumber, DeviceID: deviceID}, nil
}

// Key returns the composite storage key for this identity. Eligibility
// matching is broader (phone OR device); the key only names the row.
func (id Identity) Key() string {
	return id.PhoneNumber + "|" + id.DeviceID
}

// PhoneSuffix returns the last four digits of the phone number, used as the
// human-recognizable fragment inside reward codes.
func (id Identity) PhoneSuffix() string {
	digits := strings.TrimPrefix(id.PhoneNumber, "+")
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
