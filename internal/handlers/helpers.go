package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/orders"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.WithField("route", route).Errorf("panic recovered: %v", r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.WithFields(log.Fields{"route": route, "status": status}).Warn(message)
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// respondValidationError turns gin binding failures into field-level
// messages instead of a bare decoder error.
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, field+" is required")
			default:
				details = append(details, field+" is invalid")
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "details": details})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondOrderError maps workflow errors onto the status taxonomy:
// validation and integrity failures are 400, unresolved ids 404, the rest
// 500.
func respondOrderError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		respondWithError(c, http.StatusNotFound, route, "Order not found")
	case orders.IsValidationError(err):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	default:
		log.WithError(err).WithField("route", route).Error("order operation failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
