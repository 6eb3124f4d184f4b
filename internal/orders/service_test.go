package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

/* =========================
   MOCK REPOSITORIES
========================= */

type mockOrderRepo struct {
	orders map[primitive.ObjectID]*models.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: map[primitive.ObjectID]*models.Order{}}
}

func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	order.ID = primitive.NewObjectID()
	stored := *order
	m.orders[order.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepo) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	var result []models.Order
	for _, order := range m.orders {
		if order.User == userID {
			result = append(result, *order)
		}
	}
	return result, nil
}

func (m *mockOrderRepo) FindAll(_ context.Context) ([]models.Order, error) {
	var result []models.Order
	for _, order := range m.orders {
		result = append(result, *order)
	}
	return result, nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id primitive.ObjectID, paidAt time.Time, result models.PaymentResult) (*models.Order, bool, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	if order.IsPaid {
		copied := *order
		return &copied, false, nil
	}
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = &result
	copied := *order
	return &copied, true, nil
}

func (m *mockOrderRepo) MarkDelivered(_ context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, bool, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	if !order.IsPaid || order.IsDelivered {
		copied := *order
		return &copied, false, nil
	}
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt
	copied := *order
	return &copied, true, nil
}

type mockProductRepo struct {
	products    map[primitive.ObjectID]*models.Product
	deductCalls int
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: map[primitive.ObjectID]*models.Product{}}
}

func (m *mockProductRepo) add(name string, price float64, stock int) primitive.ObjectID {
	id := primitive.NewObjectID()
	m.products[id] = &models.Product{
		ID:           id,
		Name:         name,
		Price:        price,
		CountInStock: stock,
	}
	return id
}

func (m *mockProductRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepo) DeductStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.deductCalls++
	product, ok := m.products[id]
	if !ok {
		return ProductNotFoundError{ProductID: id}
	}
	product.CountInStock -= qty
	if product.CountInStock < 0 {
		product.CountInStock = 0
	}
	product.NumOrders++
	return nil
}

type mockUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (m *mockUserRepo) add(name, email string) primitive.ObjectID {
	id := primitive.NewObjectID()
	m.users[id] = &models.User{ID: id, Name: name, Email: email}
	return id
}

func (m *mockUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

/* =========================
   SETUP
========================= */

func setupOrderTest(t *testing.T) (*Service, *mockOrderRepo, *mockProductRepo, *mockUserRepo) {
	t.Helper()
	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	userRepo := newMockUserRepo()
	svc := NewService(orderRepo, productRepo, userRepo)
	return svc, orderRepo, productRepo, userRepo
}

func validInput(productID primitive.ObjectID, qty int, unitPrice float64) CreateOrderInput {
	items := unitPrice * float64(qty)
	return CreateOrderInput{
		Items:           []CreateItemInput{{ProductID: productID, Qty: qty}},
		ShippingAddress: models.ShippingAddress{Address: "12 Baker St", City: "Pune", PostalCode: "411001", Country: "IN"},
		PaymentMethod:   models.PaymentMethodRazorpay,
		ItemsPrice:      items,
		TaxPrice:        items * 0.18,
		ShippingPrice:   40,
		TotalPrice:      items + items*0.18 + 40,
	}
}

/* =========================
   CREATE
========================= */

func TestCreateOrderSucceedsAndLeavesStockUntouched(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 3, 100))

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.False(t, order.IsPaid)
	assert.False(t, order.IsDelivered)
	assert.Nil(t, order.PaidAt)
	assert.Equal(t, userID, order.User)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, "Kettle", order.OrderItems[0].Name)
	assert.Equal(t, 100.0, order.OrderItems[0].Price)
	assert.Equal(t, 3, order.OrderItems[0].Qty)

	// Deduction happens at payment, not at creation.
	assert.Equal(t, 5, productRepo.products[productID].CountInStock)
	assert.Equal(t, 0, productRepo.products[productID].NumOrders)
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	in := validInput(productID, 3, 100)
	in.Items = nil

	_, err := svc.Create(context.Background(), userID, in)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderRejectsMissingAddress(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	in := validInput(productID, 3, 100)
	in.ShippingAddress = models.ShippingAddress{}

	_, err := svc.Create(context.Background(), userID, in)

	assert.ErrorIs(t, err, ErrMissingAddress)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderRejectsMissingPaymentMethod(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	in := validInput(productID, 3, 100)
	in.PaymentMethod = "  "

	_, err := svc.Create(context.Background(), userID, in)

	assert.ErrorIs(t, err, ErrMissingPaymentMethod)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	svc, orderRepo, _, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	missing := primitive.NewObjectID()

	_, err := svc.Create(context.Background(), userID, validInput(missing, 1, 100))

	var notFound ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missing, notFound.ProductID)
	assert.Contains(t, err.Error(), missing.Hex())
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderRejectsInsufficientStock(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	_, err := svc.Create(context.Background(), userID, validInput(productID, 10, 100))

	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 10, stockErr.Requested)
	assert.Contains(t, err.Error(), "Available: 5, Requested: 10")
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	okProduct := productRepo.add("Kettle", 100, 5)
	lowProduct := productRepo.add("Teapot", 50, 1)

	in := CreateOrderInput{
		Items: []CreateItemInput{
			{ProductID: okProduct, Qty: 2},
			{ProductID: lowProduct, Qty: 3},
		},
		ShippingAddress: models.ShippingAddress{Address: "12 Baker St"},
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
		ItemsPrice:      350,
		TotalPrice:      350,
	}

	_, err := svc.Create(context.Background(), userID, in)

	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Empty(t, orderRepo.orders)
	assert.Equal(t, 5, productRepo.products[okProduct].CountInStock)
}

func TestCreateOrderRejectsMismatchedItemsPrice(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	in := validInput(productID, 3, 100)
	in.ItemsPrice = 10 // canonical subtotal is 300

	_, err := svc.Create(context.Background(), userID, in)

	var priceErr PriceMismatchError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, "itemsPrice", priceErr.Field)
	assert.Equal(t, 300.0, priceErr.Expected)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderRejectsMismatchedTotal(t *testing.T) {
	svc, orderRepo, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	in := validInput(productID, 3, 100)
	in.TotalPrice = 1

	_, err := svc.Create(context.Background(), userID, in)

	var priceErr PriceMismatchError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, "totalPrice", priceErr.Field)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrderToleratesRoundingNoise(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 33.33, 5)

	in := validInput(productID, 3, 33.33)
	in.ItemsPrice = 99.99
	in.TotalPrice = in.ItemsPrice + in.TaxPrice + in.ShippingPrice

	_, err := svc.Create(context.Background(), userID, in)

	require.NoError(t, err)
}

/* =========================
   PAID TRANSITION
========================= */

func paymentResult(paymentID string) models.PaymentResult {
	return models.PaymentResult{
		ID:           paymentID,
		Status:       "completed",
		UpdateTime:   time.Now(),
		EmailAddress: "asha@example.com",
	}
}

func TestMarkPaidDeductsStockExactlyOnce(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 3, 100))
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentResult)
	assert.Equal(t, "pay_1", paid.PaymentResult.ID)
	assert.Equal(t, 2, productRepo.products[productID].CountInStock)
	assert.Equal(t, 1, productRepo.products[productID].NumOrders)

	again, err := svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_2"))
	require.NoError(t, err)
	assert.True(t, again.IsPaid)
	assert.Equal(t, 2, productRepo.products[productID].CountInStock)
	assert.Equal(t, 1, productRepo.products[productID].NumOrders)
	assert.Equal(t, 1, productRepo.deductCalls)
	// The stored payment snapshot and timestamp belong to the first call.
	assert.Equal(t, "pay_1", again.PaymentResult.ID)
	assert.Equal(t, paid.PaidAt.Unix(), again.PaidAt.Unix())
}

func TestMarkPaidRepeatedCallsConverge(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 2, 100))
	require.NoError(t, err)

	var last *models.Order
	for i := 0; i < 4; i++ {
		last, err = svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, productRepo.products[productID].CountInStock)
	assert.Equal(t, 1, productRepo.products[productID].NumOrders)
	assert.True(t, last.IsPaid)
}

func TestMarkPaidFloorsStockAtZero(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 3)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 3, 100))
	require.NoError(t, err)

	// Concurrent checkout shrank the stock between creation and payment.
	productRepo.products[productID].CountInStock = 1

	_, err = svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
	require.NoError(t, err)
	assert.Equal(t, 0, productRepo.products[productID].CountInStock)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	svc, _, _, _ := setupOrderTest(t)

	_, err := svc.MarkPaid(context.Background(), primitive.NewObjectID(), paymentResult("pay_1"))

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkPaidSurvivesDeletedProduct(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 1, 100))
	require.NoError(t, err)

	// Product hard-deleted between order creation and payment.
	delete(productRepo.products, productID)

	paid, err := svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
}

/* =========================
   DELIVERY
========================= */

func TestMarkDeliveredRequiresPayment(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 1, 100))
	require.NoError(t, err)

	_, err = svc.MarkDelivered(context.Background(), order.ID)

	assert.ErrorIs(t, err, ErrOrderNotPaid)

	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDelivered)
	assert.Nil(t, stored.DeliveredAt)
}

func TestMarkDeliveredIdempotent(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 1, 100))
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
	require.NoError(t, err)

	first, err := svc.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, first.IsDelivered)
	require.NotNil(t, first.DeliveredAt)

	second, err := svc.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, second.IsDelivered)
	assert.Equal(t, first.DeliveredAt.Unix(), second.DeliveredAt.Unix())
}

func TestMarkDeliveredUnknownOrder(t *testing.T) {
	svc, _, _, _ := setupOrderTest(t)

	_, err := svc.MarkDelivered(context.Background(), primitive.NewObjectID())

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

/* =========================
   FULL LIFECYCLE
========================= */

func TestOrderLifecycleScenario(t *testing.T) {
	svc, _, productRepo, userRepo := setupOrderTest(t)
	userID := userRepo.add("Asha", "asha@example.com")
	productID := productRepo.add("Kettle", 100, 5)

	order, err := svc.Create(context.Background(), userID, validInput(productID, 3, 100))
	require.NoError(t, err)
	assert.Equal(t, 5, productRepo.products[productID].CountInStock)

	paid, err := svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, 2, productRepo.products[productID].CountInStock)
	assert.Equal(t, 1, productRepo.products[productID].NumOrders)

	_, err = svc.MarkPaid(context.Background(), order.ID, paymentResult("pay_1"))
	require.NoError(t, err)
	assert.Equal(t, 2, productRepo.products[productID].CountInStock)

	delivered, err := svc.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)

	owner, err := svc.OwnerOf(context.Background(), delivered)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "asha@example.com", owner.Email)
}
