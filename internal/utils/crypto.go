// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	alphanumeric  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func GenerateRandomString(length int) (string, error) {
	return randomFromCharset(alphanumeric, length)
}

func randomFromCharset(charset string, length int) (string, error) {
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

func GenerateVerificationCode() (string, error) {
	return GenerateRandomString(32)
}

// GenerateOrderNumber returns a human-readable order reference such as
// GEM-20240115-7KQ2MX. Ambiguous characters (0/O, 1/I) are excluded.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix, err := randomFromCharset(orderAlphabet, 6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GEM-%s-%s", now.UTC().Format("20060102"), suffix), nil
}

// GenerateSerialNumber returns a catalog serial for gemstones imported without one.
func GenerateSerialNumber(gemType string) (string, error) {
	suffix, err := randomFromCharset(orderAlphabet, 8)
	if err != nil {
		return "", err
	}
	prefix := "GEM"
	if len(gemType) >= 3 {
		prefix = gemType[:3]
	}
	return fmt.Sprintf("%s-%s", strings.ToUpper(prefix), suffix), nil
}

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}
