package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderItemRequest struct {
	Product string `json:"product" binding:"required"`
	Qty     int    `json:"qty" binding:"required"`
}

type shippingAddressRequest struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type createOrderRequest struct {
	OrderItems      []createOrderItemRequest `json:"orderItems"`
	ShippingAddress shippingAddressRequest   `json:"shippingAddress"`
	PaymentMethod   string                   `json:"paymentMethod"`
	ItemsPrice      float64                  `json:"itemsPrice"`
	TaxPrice        float64                  `json:"taxPrice"`
	ShippingPrice   float64                  `json:"shippingPrice"`
	TotalPrice      float64                  `json:"totalPrice"`
}

type markPaidRequest struct {
	PaymentID  string    `json:"paymentId"`
	Status     string    `json:"status"`
	UpdateTime time.Time `json:"update_time"`
	Email      string    `json:"email"`
}

// orderResponse replaces the owner id with the name/email projection the
// frontend displays.
type orderResponse struct {
	models.Order
	User interface{} `json:"user"`
}

func orderWithOwner(c *gin.Context, svc *orders.Service, order *models.Order) orderResponse {
	resp := orderResponse{Order: *order, User: order.User}
	owner, err := svc.OwnerOf(c.Request.Context(), order)
	if err != nil {
		log.WithError(err).WithField("orderId", order.ID.Hex()).Warn("owner lookup failed")
		return resp
	}
	if owner != nil {
		resp.User = owner
	}
	return resp
}

/* =========================
   USER ROUTES
========================= */

func CreateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		items := make([]orders.CreateItemInput, 0, len(req.OrderItems))
		for _, item := range req.OrderItems {
			productID, err := primitive.ObjectIDFromHex(item.Product)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid product id")
				return
			}
			items = append(items, orders.CreateItemInput{ProductID: productID, Qty: item.Qty})
		}

		order, err := svc.Create(c.Request.Context(), user.ID, orders.CreateOrderInput{
			Items:           items,
			ShippingAddress: models.ShippingAddress(req.ShippingAddress),
			PaymentMethod:   req.PaymentMethod,
			ItemsPrice:      req.ItemsPrice,
			TaxPrice:        req.TaxPrice,
			ShippingPrice:   req.ShippingPrice,
			TotalPrice:      req.TotalPrice,
		})
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, orderWithOwner(c, svc, order))
	}
}

func GetMyOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/myorders"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		list, err := svc.ListByUser(c.Request.Context(), user.ID)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		owner := &models.OrderUser{ID: user.ID, Name: user.Name, Email: user.Email}
		responses := make([]orderResponse, 0, len(list))
		for i := range list {
			responses = append(responses, orderResponse{Order: list[i], User: owner})
		}

		c.JSON(http.StatusOK, responses)
	}
}

func GetOrderByID(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		order, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		if order.User != user.ID && !user.IsAdmin {
			respondWithError(c, http.StatusUnauthorized, route, "Not authorized to view this order")
			return
		}

		c.JSON(http.StatusOK, orderWithOwner(c, svc, order))
	}
}

/* =========================
   ADMIN ROUTES
========================= */

func GetAllOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		list, err := svc.ListAll(c.Request.Context())
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		responses := make([]orderResponse, 0, len(list))
		for i := range list {
			responses = append(responses, orderWithOwner(c, svc, &list[i]))
		}

		c.JSON(http.StatusOK, responses)
	}
}

// MarkOrderPaid is the administrative override of the payment transition:
// the caller supplies the payment reference instead of a gateway-verified
// callback. The stock deduction guard is the same one the verified path
// uses.
func MarkOrderPaid(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/pay"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var req markPaidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		updateTime := req.UpdateTime
		if updateTime.IsZero() {
			updateTime = time.Now()
		}

		order, err := svc.MarkPaid(c.Request.Context(), id, models.PaymentResult{
			ID:           req.PaymentID,
			Status:       req.Status,
			UpdateTime:   updateTime,
			EmailAddress: req.Email,
		})
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, orderWithOwner(c, svc, order))
	}
}

func MarkOrderDelivered(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/deliver"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		order, err := svc.MarkDelivered(c.Request.Context(), id)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, orderWithOwner(c, svc, order))
	}
}
