package orders

import (
	"context"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// priceTolerance absorbs float rounding between the client's cart math and
// the server-side recomputation.
const priceTolerance = 0.01

// orderItemImagePlaceholder is stored instead of image bytes; clients load
// images through the product image endpoint.
const orderItemImagePlaceholder = "image"

type CreateItemInput struct {
	ProductID primitive.ObjectID
	Qty       int
}

type CreateOrderInput struct {
	Items           []CreateItemInput
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	ItemsPrice      float64
	TaxPrice        float64
	ShippingPrice   float64
	TotalPrice      float64
}

// Service runs the order lifecycle: creation with stock validation, the
// paid transition with its exactly-once stock deduction, and delivery
// marking.
type Service struct {
	orders   OrderRepository
	products ProductRepository
	users    UserRepository
	now      func() time.Time
}

func NewService(orders OrderRepository, products ProductRepository, users UserRepository) *Service {
	return &Service{
		orders:   orders,
		products: products,
		users:    users,
		now:      time.Now,
	}
}

// Create validates the cart snapshot and persists a new unpaid order. Every
// check runs before anything is written, so a failing call leaves no
// partial order behind. Line items snapshot the canonical product name and
// price; the client-supplied subtotal and total must agree with the values
// recomputed from those prices.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(in.ShippingAddress.Address) == "" {
		return nil, ErrMissingAddress
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, ErrMissingPaymentMethod
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	subtotal := 0.0

	for _, item := range in.Items {
		if item.Qty <= 0 {
			return nil, InsufficientStockError{
				ProductID: item.ProductID,
				Available: 0,
				Requested: item.Qty,
			}
		}

		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ProductNotFoundError{ProductID: item.ProductID}
		}

		if product.CountInStock < item.Qty {
			return nil, InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.CountInStock,
				Requested: item.Qty,
			}
		}

		items = append(items, models.OrderItem{
			Name:    product.Name,
			Qty:     item.Qty,
			Image:   orderItemImagePlaceholder,
			Price:   product.Price,
			Product: product.ID,
		})
		subtotal += product.Price * float64(item.Qty)
	}

	if math.Abs(subtotal-in.ItemsPrice) > priceTolerance {
		return nil, PriceMismatchError{Field: "itemsPrice", Expected: subtotal, Supplied: in.ItemsPrice}
	}
	expectedTotal := subtotal + in.TaxPrice + in.ShippingPrice
	if math.Abs(expectedTotal-in.TotalPrice) > priceTolerance {
		return nil, PriceMismatchError{Field: "totalPrice", Expected: expectedTotal, Supplied: in.TotalPrice}
	}

	order := &models.Order{
		User:            userID,
		OrderItems:      items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
		CreatedAt:       s.now(),
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"orderId": created.ID.Hex(),
		"user":    userID.Hex(),
		"total":   created.TotalPrice,
	}).Info("order created")

	return created, nil
}

// MarkPaid flips the order to paid and applies the stock deduction exactly
// once. The flip is a single conditional update, so only the caller that
// wins it runs the deduction; every later call returns the stored order
// with paidAt and paymentResult untouched.
func (s *Service) MarkPaid(ctx context.Context, orderID primitive.ObjectID, result models.PaymentResult) (*models.Order, error) {
	order, transitioned, err := s.orders.MarkPaid(ctx, orderID, s.now(), result)
	if err != nil {
		return nil, err
	}

	if !transitioned {
		log.WithField("orderId", orderID.Hex()).Info("order already paid, skipping stock deduction")
		return order, nil
	}

	for _, item := range order.OrderItems {
		if err := s.products.DeductStock(ctx, item.Product, item.Qty); err != nil {
			// Matches the lookup-and-skip of the fulfillment flow: a line
			// whose product has been hard-deleted does not fail the payment.
			log.WithError(err).WithFields(log.Fields{
				"orderId": orderID.Hex(),
				"product": item.Product.Hex(),
			}).Warn("stock deduction skipped")
		}
	}

	log.WithField("orderId", orderID.Hex()).Info("order marked paid")
	return order, nil
}

// MarkDelivered records fulfillment. Delivering an unpaid order is
// rejected; delivering an already-delivered order is a no-op that leaves
// deliveredAt unchanged.
func (s *Service) MarkDelivered(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, transitioned, err := s.orders.MarkDelivered(ctx, orderID, s.now())
	if err != nil {
		return nil, err
	}

	if !transitioned {
		if !order.IsPaid {
			return nil, ErrOrderNotPaid
		}
		return order, nil
	}

	log.WithField("orderId", orderID.Hex()).Info("order marked delivered")
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.FindAll(ctx)
}

// OwnerOf resolves the owning account's display projection for responses.
func (s *Service) OwnerOf(ctx context.Context, order *models.Order) (*models.OrderUser, error) {
	user, err := s.users.FindByID(ctx, order.User)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &models.OrderUser{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}
