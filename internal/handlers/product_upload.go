package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxImageSize caps uploaded product images at 8 MB.
const maxImageSize = 8 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// productFormInput carries multipart product fields. The *Set flags keep
// partial updates possible: only fields present in the form are applied.
type productFormInput struct {
	Name               string
	NameSet            bool
	Price              float64
	PriceSet           bool
	Description        string
	DescriptionSet     bool
	CountInStock       int
	CountInStockSet    bool
	Discount           float64
	DiscountSet        bool
	IsNewCollection    bool
	IsNewCollectionSet bool
	ImageData          []byte
	ImageContentType   string
	ImageSet           bool
}

func parseProductForm(c *gin.Context) (productFormInput, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return productFormInput{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	input := productFormInput{}

	if value, ok := c.GetPostForm("name"); ok {
		input.Name = strings.TrimSpace(value)
		input.NameSet = true
	}

	if value, ok := c.GetPostForm("description"); ok {
		input.Description = strings.TrimSpace(value)
		input.DescriptionSet = true
	}

	if value, ok := c.GetPostForm("price"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productFormInput{}, fmt.Errorf("invalid price: %s", value)
		}
		input.Price = parsed
		input.PriceSet = true
	}

	if value, ok := c.GetPostForm("countInStock"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return productFormInput{}, fmt.Errorf("invalid countInStock: %s", value)
		}
		input.CountInStock = parsed
		input.CountInStockSet = true
	}

	if value, ok := c.GetPostForm("discount"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productFormInput{}, fmt.Errorf("invalid discount: %s", value)
		}
		input.Discount = parsed
		input.DiscountSet = true
	}

	if value, ok := c.GetPostForm("isNewCollection"); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return productFormInput{}, fmt.Errorf("invalid isNewCollection: %s", value)
		}
		input.IsNewCollection = parsed
		input.IsNewCollectionSet = true
	}

	file, err := c.FormFile("image")
	if err == nil {
		data, contentType, err := readImageFile(file)
		if err != nil {
			return productFormInput{}, err
		}
		input.ImageData = data
		input.ImageContentType = contentType
		input.ImageSet = true
	}

	return input, nil
}

func readImageFile(file *multipart.FileHeader) ([]byte, string, error) {
	if file.Size > maxImageSize {
		return nil, "", fmt.Errorf("image too large: %d bytes", file.Size)
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return nil, "", fmt.Errorf("only jpeg and png images are allowed")
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxImageSize))
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}
