package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes is the entropy of single-use tokens and session ids.
const TokenBytes = 32

// GenerateRandomToken returns length random bytes, hex encoded.
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func GenerateSessionID() (string, error) {
	return GenerateRandomToken(TokenBytes)
}
