package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 is a keyed, deterministic digest. It fits lookups by value,
// such as finding a refresh token row from the presented token.
type HMACSHA256 struct {
	key []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{key: []byte(secret)}
}

// Hash returns the hex encoded MAC of str.
func (h *HMACSHA256) Hash(str string) ([]byte, error) {
	return h.sum(str), nil
}

func (h *HMACSHA256) Verify(hashed, str string) bool {
	return hmac.Equal([]byte(hashed), h.sum(str))
}

func (h *HMACSHA256) sum(str string) []byte {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(str))
	return hex.AppendEncode(nil, mac.Sum(nil))
}
