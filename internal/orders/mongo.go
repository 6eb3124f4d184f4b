package orders

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

const queryTimeout = 5 * time.Second

// MongoOrderRepository stores orders in the "orders" collection. Both
// transitions are single filtered updates: the filter carries the
// still-unflipped flag (and, for delivery, isPaid), so concurrent calls for
// the same order cannot apply the transition twice.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection("orders")}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return order, nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var order models.Order
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}
	return &order, nil
}

func (r *MongoOrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find orders by user")
	}
	defer cursor.Close(ctx)

	var results []models.Order
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return results, nil
}

func (r *MongoOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "find orders")
	}
	defer cursor.Close(ctx)

	var results []models.Order
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return results, nil
}

func (r *MongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time, result models.PaymentResult) (*models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "isPaid": false}
	update := bson.M{"$set": bson.M{
		"isPaid":        true,
		"paidAt":        paidAt,
		"paymentResult": result,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, errors.Wrap(err, "mark order paid")
	}

	// Nothing matched: either the order is already paid or it does not
	// exist. Look it up to tell the two apart.
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *MongoOrderRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "isPaid": true, "isDelivered": false}
	update := bson.M{"$set": bson.M{
		"isDelivered": true,
		"deliveredAt": deliveredAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, errors.Wrap(err, "mark order delivered")
	}

	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// MongoProductRepository is the workflow's view of the catalog.
type MongoProductRepository struct {
	coll *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection("products")}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}
	return &product, nil
}

func (r *MongoProductRepository) DeductStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Pipeline update so the floor at zero and the popularity increment
	// land in one atomic write.
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "countInStock", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$subtract", Value: bson.A{"$countInStock", qty}}},
			}}}},
			{Key: "numOrders", Value: bson.D{{Key: "$add", Value: bson.A{"$numOrders", 1}}}},
		}}},
	}

	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return errors.Wrap(err, "deduct stock")
	}
	if res.MatchedCount == 0 {
		return ProductNotFoundError{ProductID: id}
	}
	return nil
}

// MongoUserRepository resolves order owners.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection("users")}
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}
