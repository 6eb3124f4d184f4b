package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the payment intent returned by the gateway. Amount is in
// the gateway's minor unit (paise for INR).
type GatewayOrder struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Gateway creates remote payment intents. The concrete implementation is
// picked from configuration: Razorpay when credentials exist, an offline
// sandbox otherwise.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
}

// NewGateway returns the Razorpay-backed gateway when both credentials are
// configured and the offline sandbox gateway otherwise, so checkout flows
// keep working in development without real keys.
func NewGateway(keyID, keySecret string) Gateway {
	if keyID != "" && keySecret != "" {
		return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
	}
	return &sandboxGateway{}
}

type razorpayGateway struct {
	client *razorpay.Client
}

func (g *razorpayGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "razorpay order create")
	}

	order := &GatewayOrder{
		Receipt:  receipt,
		Currency: currency,
		Amount:   amount,
	}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if amt, ok := body["amount"].(float64); ok {
		order.Amount = int64(amt)
	}
	if cur, ok := body["currency"].(string); ok {
		order.Currency = cur
	}
	return order, nil
}

// sandboxGateway fabricates payment intents locally. Ids mimic the
// gateway's "order_" prefix so the client-side checkout flow is unchanged.
type sandboxGateway struct{}

func (g *sandboxGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	id := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return &GatewayOrder{
		ID:        id,
		Amount:    amount,
		Currency:  currency,
		Receipt:   receipt,
		Status:    "created",
		CreatedAt: time.Now(),
	}, nil
}
