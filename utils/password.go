package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of the password using a cost that balances security and performance.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SessionAuthHash derives the value a session keeps to detect password changes.
// Any change of the stored hash invalidates every session carrying the old value.
func SessionAuthHash(secret, passwordHash string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(passwordHash))
	return hex.EncodeToString(mac.Sum(nil))
}
