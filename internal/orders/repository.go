package orders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// OrderRepository persists orders. The two transition methods are
// conditional: MarkPaid flips isPaid only when it is still false, and
// MarkDelivered flips isDelivered only for a paid, not-yet-delivered order.
// The second return value reports whether this call performed the flip;
// when it did not, the stored order is returned unchanged, so repeated
// transitions are observable no-ops.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)

	MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time, result models.PaymentResult) (*models.Order, bool, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, bool, error)
}

// ProductRepository is the slice of the catalog the workflow needs: lookups
// for validation and the post-payment stock adjustment.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// DeductStock decrements countInStock by qty flooring at zero and
	// increments the numOrders popularity counter, in one update.
	DeductStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// UserRepository resolves order owners for response projections.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}
