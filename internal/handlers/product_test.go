package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
)

func TestValidateProductFieldsRejectsBadValues(t *testing.T) {
	if err := validateProductFields(0, 5, 0); err == nil {
		t.Fatal("expected error for zero price")
	}
	if err := validateProductFields(-10, 5, 0); err == nil {
		t.Fatal("expected error for negative price")
	}
	if err := validateProductFields(10, -1, 0); err == nil {
		t.Fatal("expected error for negative stock")
	}
	if err := validateProductFields(10, 5, -1); err == nil {
		t.Fatal("expected error for negative discount")
	}
	if err := validateProductFields(10, 5, 101); err == nil {
		t.Fatal("expected error for discount over 100")
	}
}

func TestValidateProductFieldsAcceptsBounds(t *testing.T) {
	if err := validateProductFields(10, 0, 0); err != nil {
		t.Fatalf("expected zero stock and discount to be valid, got %v", err)
	}
	if err := validateProductFields(10, 5, 100); err != nil {
		t.Fatalf("expected discount 100 to be valid, got %v", err)
	}
}

func TestImageDataURL(t *testing.T) {
	product := &models.Product{}
	if imageDataURL(product) != nil {
		t.Fatal("expected nil data URL for product without image")
	}

	product.Image = models.ProductImage{
		Data:        []byte{0x89, 0x50, 0x4e, 0x47},
		ContentType: "image/png",
	}
	url, ok := imageDataURL(product).(string)
	if !ok {
		t.Fatal("expected string data URL")
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected data URL prefix: %s", url)
	}
}

func TestParseListQueryDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/products", nil)

	page, pageSize := parseListQuery(c)
	if page != 1 || pageSize != 10 {
		t.Fatalf("expected defaults 1/10, got %d/%d", page, pageSize)
	}
}

func TestParseListQueryIgnoresInvalidValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/products?pageNumber=abc&limit=-5", nil)

	page, pageSize := parseListQuery(c)
	if page != 1 || pageSize != 10 {
		t.Fatalf("expected defaults for invalid params, got %d/%d", page, pageSize)
	}
}

func TestParseListQueryReadsValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/products?pageNumber=3&limit=24", nil)

	page, pageSize := parseListQuery(c)
	if page != 3 || pageSize != 24 {
		t.Fatalf("expected 3/24, got %d/%d", page, pageSize)
	}
}

func TestLowerCamel(t *testing.T) {
	if got := lowerCamel("Email"); got != "email" {
		t.Fatalf("expected email, got %s", got)
	}
	if got := lowerCamel(""); got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
}
