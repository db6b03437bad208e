package billing

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ComputeSignature returns the hex SHA-512 digest the gateway signs its
// notifications with: order_id + status_code + gross_amount + server key,
// concatenated in that order.
func ComputeSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the expected signature for a notification and
// compares it constant-time against the payload's signature field. An empty
// server key never validates.
func VerifySignature(n Notification, serverKey string) bool {
	sig := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	if sig == "" || serverKey == "" {
		return false
	}
	expected := ComputeSignature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
