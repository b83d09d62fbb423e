package delivery

import (
	"errors"
	"net/http"
	"strings"

	"sustainly-backend/internal/product/domain"
	"sustainly-backend/internal/product/dto"
	"sustainly-backend/internal/product/usecase"

	"github.com/gin-gonic/gin"
)

// ProductHandler handles product-score HTTP requests
type ProductHandler struct {
	productUsecase usecase.ProductUsecase
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productUsecase usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase}
}

// GetProductScore scores a product URL
// GET /api/product-score?url=https://www.amazon.com/dp/...
func (h *ProductHandler) GetProductScore(c *gin.Context) {
	productURL := c.Query("url")
	userID := c.GetString("userID")
	accessToken := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	data, err := h.productUsecase.ScoreProduct(c.Request.Context(), productURL, userID, accessToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrUnsupportedHost):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrAnalysisFailed), errors.Is(err, domain.ErrInvalidProductData):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to analyze product. Please try again."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewProductView(data))
}
