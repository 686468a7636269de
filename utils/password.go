package utils

import "golang.org/x/crypto/bcrypt"

// HashAdminKey returns the bcrypt hash of an admin key, used by deployment
// tooling to produce the value stored in configuration.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAdminKey compares the configured bcrypt hash with a presented key.
func CheckAdminKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
