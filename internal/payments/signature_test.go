package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsValid(t *testing.T) {
	secret := "test_secret"
	sig := sign(secret, "order_abc", "pay_xyz")

	if !VerifySignature(secret, "order_abc", "pay_xyz", sig) {
		t.Fatal("expected a valid signature to be accepted")
	}
}

func TestVerifySignatureRejectsTampered(t *testing.T) {
	secret := "test_secret"
	sig := sign(secret, "order_abc", "pay_xyz")

	if VerifySignature(secret, "order_abc", "pay_other", sig) {
		t.Fatal("expected signature over different payment id to be rejected")
	}
	if VerifySignature(secret, "order_abc", "pay_xyz", sig[:len(sig)-1]+"0") {
		t.Fatal("expected altered signature to be rejected")
	}
	if VerifySignature(secret, "order_abc", "pay_xyz", "") {
		t.Fatal("expected empty signature to be rejected")
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	sig := sign("other_secret", "order_abc", "pay_xyz")

	if VerifySignature("test_secret", "order_abc", "pay_xyz", sig) {
		t.Fatal("expected signature from a different secret to be rejected")
	}
}

func TestVerifySignatureSkippedWithoutSecret(t *testing.T) {
	if !VerifySignature("", "order_abc", "pay_xyz", "anything") {
		t.Fatal("expected verification to be skipped when no secret is configured")
	}
}

func TestSandboxGatewayCreatesOrders(t *testing.T) {
	gw := NewGateway("", "")

	order, err := gw.CreateOrder(context.Background(), 50000, "INR", "rcpt_1")
	if err != nil {
		t.Fatalf("sandbox gateway returned error: %v", err)
	}
	if order.ID == "" || order.ID[:6] != "order_" {
		t.Fatalf("expected order id with order_ prefix, got %q", order.ID)
	}
	if order.Amount != 50000 || order.Currency != "INR" || order.Status != "created" {
		t.Fatalf("unexpected sandbox order: %+v", order)
	}
}
