package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its bcrypt hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateActivationCode produces a grouped activation code such as
// "7KQ2M-X9RTC-4WNPB". The charset omits ambiguous characters (0/O, 1/I)
// because operators read these codes to buyers over chat.
func GenerateActivationCode(groups, groupLen int) string {
	if groups <= 0 {
		groups = 3
	}
	if groupLen <= 0 {
		groupLen = 5
	}

	parts := make([]string, groups)
	buf := make([]byte, groupLen)
	for g := 0; g < groups; g++ {
		for i := 0; i < groupLen; i++ {
			n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			buf[i] = codeCharset[n.Int64()]
		}
		parts[g] = string(buf)
	}
	return strings.Join(parts, "-")
}

// GenerateRandomString generate random string
func GenerateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[num.Int64()]
	}
	return string(result)
}
