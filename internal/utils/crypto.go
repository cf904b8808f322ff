// internal/utils/crypto.go
package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// VerifyHMAC checks an HMAC-SHA256 hex signature over payload using a
// constant-time comparison. An empty secret skips verification (dev mode).
func VerifyHMAC(payload []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	signature = strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SignHMAC produces the hex HMAC-SHA256 signature of payload.
func SignHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateContractNumber allocates a ZW-<year>-<hex> contract number.
func GenerateContractNumber() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate contract number: %w", err)
	}
	return fmt.Sprintf("ZW-%d-%s", time.Now().Year(), strings.ToUpper(hex.EncodeToString(buf))), nil
}
