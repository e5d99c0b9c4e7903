package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns hex(HMAC-SHA256(key, merchantCode + merchantRef + amount)).
// amount must be the literal the gateway sent.
func Sign(key, merchantCode, merchantRef, amount string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(merchantCode + merchantRef + amount))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureVerifier checks gateway callbacks against the server-held key.
type SignatureVerifier struct {
	privateKey   string
	merchantCode string
}

func NewSignatureVerifier(privateKey, merchantCode string) *SignatureVerifier {
	return &SignatureVerifier{privateKey: privateKey, merchantCode: merchantCode}
}

func (v *SignatureVerifier) Configured() bool {
	return v != nil && v.privateKey != ""
}

// Verify compares in constant time. When a merchant code is configured the
// callback must carry the same one.
func (v *SignatureVerifier) Verify(merchantCode, merchantRef, amount, supplied string) bool {
	if !v.Configured() || supplied == "" {
		return false
	}
	if v.merchantCode != "" && merchantCode != v.merchantCode {
		return false
	}
	expected := Sign(v.privateKey, merchantCode, merchantRef, amount)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(supplied))))
}
