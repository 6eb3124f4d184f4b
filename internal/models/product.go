package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductImage stores the uploaded image bytes together with the MIME type
// they were uploaded with.
type ProductImage struct {
	Data        []byte `bson:"data,omitempty" json:"-"`
	ContentType string `bson:"contentType,omitempty" json:"-"`
}

type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name            string             `bson:"name" json:"name"`
	Price           float64            `bson:"price" json:"price"`
	Description     string             `bson:"description" json:"description"`
	Image           ProductImage       `bson:"image,omitempty" json:"-"`
	CountInStock    int                `bson:"countInStock" json:"countInStock"`
	Discount        float64            `bson:"discount" json:"discount"`
	IsNewCollection bool               `bson:"isNewCollection" json:"isNewCollection"`
	NumOrders       int                `bson:"numOrders" json:"numOrders"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasImage reports whether an image was ever uploaded for the product.
func (p *Product) HasImage() bool {
	return len(p.Image.Data) > 0
}
