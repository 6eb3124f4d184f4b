package orders

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyCart            = errors.New("no order items")
	ErrMissingAddress       = errors.New("shipping address is required")
	ErrMissingPaymentMethod = errors.New("payment method is required")
	ErrOrderNotPaid         = errors.New("order is not paid")
)

// ProductNotFoundError names the line item product that does not resolve.
type ProductNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID.Hex())
}

// InsufficientStockError reports the shortfall for a single line item.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Name      string
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s. Available: %d, Requested: %d",
		e.Name, e.Available, e.Requested)
}

// PriceMismatchError rejects client-supplied totals that disagree with the
// server-side recomputation.
type PriceMismatchError struct {
	Field    string
	Expected float64
	Supplied float64
}

func (e PriceMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %.2f, got %.2f", e.Field, e.Expected, e.Supplied)
}

// IsValidationError reports whether err should map to a 400 response.
func IsValidationError(err error) bool {
	var stockErr InsufficientStockError
	var priceErr PriceMismatchError
	var notFoundErr ProductNotFoundError
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrMissingAddress),
		errors.Is(err, ErrMissingPaymentMethod),
		errors.Is(err, ErrOrderNotPaid):
		return true
	case errors.As(err, &stockErr), errors.As(err, &priceErr), errors.As(err, &notFoundErr):
		return true
	}
	return false
}
