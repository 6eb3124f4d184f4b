package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the gateway callback signature: HMAC-SHA256 with
// the key secret over "<gatewayOrderID>|<gatewayPaymentID>", hex encoded.
// The comparison is constant time. An empty secret means signature checking
// is disabled for the deployment (sandbox mode) and every signature is
// accepted.
func VerifySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if secret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
