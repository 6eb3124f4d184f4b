package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

/* =========================
   HELPERS
========================= */

func validateProductFields(price float64, stock int, discount float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be greater than 0")
	}
	if stock < 0 {
		return fmt.Errorf("countInStock cannot be negative")
	}
	if discount < 0 || discount > 100 {
		return fmt.Errorf("discount must be between 0 and 100")
	}
	return nil
}

// imageDataURL renders the stored image bytes as a data URL for list and
// detail responses; the raw bytes stay available on the image endpoint.
func imageDataURL(p *models.Product) interface{} {
	if !p.HasImage() {
		return nil
	}
	return fmt.Sprintf("data:%s;base64,%s",
		p.Image.ContentType,
		base64.StdEncoding.EncodeToString(p.Image.Data),
	)
}

func productView(p *models.Product) gin.H {
	return gin.H{
		"_id":             p.ID.Hex(),
		"name":            p.Name,
		"price":           p.Price,
		"description":     p.Description,
		"countInStock":    p.CountInStock,
		"discount":        p.Discount,
		"isNewCollection": p.IsNewCollection,
		"numOrders":       p.NumOrders,
		"image":           imageDataURL(p),
		"createdAt":       p.CreatedAt,
	}
}

func parseListQuery(c *gin.Context) (page, pageSize int64) {
	page = 1
	pageSize = 10
	if v, err := strconv.ParseInt(c.Query("pageNumber"), 10, 64); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && v >= 1 {
		pageSize = v
	}
	return page, pageSize
}

/* =========================
   PUBLIC CATALOG
========================= */

func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		page, pageSize := parseListQuery(c)
		keyword := c.Query("keyword")
		sortBy := c.DefaultQuery("sort", "all")

		query := bson.M{
			"name": bson.M{"$regex": keyword, "$options": "i"},
		}
		if c.Query("available") == "true" {
			query["countInStock"] = bson.M{"$gt": 0}
		}
		if c.Query("discount") == "true" {
			query["discount"] = bson.M{"$gt": 0}
		}

		sort := bson.D{{Key: "createdAt", Value: -1}}
		switch sortBy {
		case "popular":
			sort = bson.D{{Key: "numOrders", Value: -1}}
		case "newest":
			sort = bson.D{{Key: "createdAt", Value: -1}}
		case "newCollection":
			query["isNewCollection"] = true
		case "discounted":
			query["discount"] = bson.M{"$gt": 0}
			sort = bson.D{{Key: "discount", Value: -1}}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		coll := db.Collection("products")
		count, err := coll.CountDocuments(ctx, query)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		opts := options.Find().
			SetSort(sort).
			SetLimit(pageSize).
			SetSkip(pageSize * (page - 1))

		cursor, err := coll.Find(ctx, query, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		views := make([]gin.H, 0, len(products))
		for i := range products {
			views = append(views, productView(&products[i]))
		}

		c.JSON(http.StatusOK, gin.H{
			"products":      views,
			"page":          page,
			"pages":         int64(math.Ceil(float64(count) / float64(pageSize))),
			"totalProducts": count,
		})
	}
}

func GetProductByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		c.JSON(http.StatusOK, productView(&product))
	}
}

// GetProductImage serves the stored image bytes with their saved content
// type so the frontend can address images as plain URLs.
func GetProductImage(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id/image"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if !product.HasImage() {
			respondWithError(c, http.StatusNotFound, route, "Product has no image")
			return
		}

		c.Data(http.StatusOK, product.Image.ContentType, product.Image.Data)
	}
}

/* =========================
   ADMIN CATALOG
========================= */

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products/add"
		defer handlePanic(c, route)

		input, err := parseProductForm(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if !input.NameSet || input.Name == "" || !input.PriceSet || !input.CountInStockSet {
			respondWithError(c, http.StatusBadRequest, route, "name, price and countInStock are required")
			return
		}
		if err := validateProductFields(input.Price, input.CountInStock, input.Discount); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		now := time.Now()
		product := models.Product{
			Name:            input.Name,
			Price:           input.Price,
			Description:     input.Description,
			CountInStock:    input.CountInStock,
			Discount:        input.Discount,
			IsNewCollection: input.IsNewCollection,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if input.ImageSet {
			product.Image = models.ProductImage{
				Data:        input.ImageData,
				ContentType: input.ImageContentType,
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			log.WithError(err).Error("product insert failed")
			respondWithError(c, http.StatusInternalServerError, route, "Error while saving product")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			product.ID = id
		}

		log.WithField("name", product.Name).Info("product created")
		c.JSON(http.StatusCreated, productView(&product))
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		input, err := parseProductForm(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		coll := db.Collection("products")

		var product models.Product
		if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		update := bson.M{"updatedAt": time.Now()}
		if input.NameSet {
			product.Name = input.Name
			update["name"] = input.Name
		}
		if input.PriceSet {
			product.Price = input.Price
			update["price"] = input.Price
		}
		if input.DescriptionSet {
			product.Description = input.Description
			update["description"] = input.Description
		}
		if input.CountInStockSet {
			product.CountInStock = input.CountInStock
			update["countInStock"] = input.CountInStock
		}
		if input.DiscountSet {
			product.Discount = input.Discount
			update["discount"] = input.Discount
		}
		if input.IsNewCollectionSet {
			product.IsNewCollection = input.IsNewCollection
			update["isNewCollection"] = input.IsNewCollection
		}
		if input.ImageSet {
			product.Image = models.ProductImage{
				Data:        input.ImageData,
				ContentType: input.ImageContentType,
			}
			update["image"] = product.Image
		}

		if err := validateProductFields(product.Price, product.CountInStock, product.Discount); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if _, err := coll.UpdateByID(ctx, id, bson.M{"$set": update}); err != nil {
			log.WithError(err).Error("product update failed")
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, productView(&product))
	}
}

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}

		log.WithField("productId", id.Hex()).Info("product deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
	}
}
