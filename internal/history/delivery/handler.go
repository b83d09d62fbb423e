package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"sustainly-backend/internal/history/domain"
	"sustainly-backend/internal/history/usecase"

	"github.com/gin-gonic/gin"
)

// Messages shown to the user for each failure.
const (
	msgListFetch = "Failed to load your history"
	msgDelete    = "Failed to clear your history"
	msgRetry     = "Unable to load product details at this time"
	msgNotFound  = "History item not found"
)

// HistoryHandler handles user-history HTTP requests
type HistoryHandler struct {
	historyUsecase usecase.HistoryUsecase
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(historyUsecase usecase.HistoryUsecase) *HistoryHandler {
	return &HistoryHandler{historyUsecase: historyUsecase}
}

// GetHistory returns the user's history, most recent first
// GET /api/user-history?q=kettle&async=true
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	userID := c.GetString("userID")
	async, _ := strconv.ParseBool(c.Query("async"))

	var (
		items   []domain.HistoryItem
		pending bool
		err     error
	)
	if async {
		items, pending, err = h.historyUsecase.LoadHistoryAsync(c.Request.Context(), userID)
	} else {
		items, err = h.historyUsecase.LoadHistory(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgListFetch})
		return
	}

	if q := c.Query("q"); q != "" && !pending {
		items = h.historyUsecase.SearchHistory(items, q)
	}
	if items == nil {
		items = []domain.HistoryItem{}
	}

	status := http.StatusOK
	if pending {
		status = http.StatusAccepted
	}
	c.JSON(status, items)
}

// ClearHistory deletes all of the user's history
// DELETE /api/user-history
func (h *HistoryHandler) ClearHistory(c *gin.Context) {
	userID := c.GetString("userID")

	cleared, err := h.historyUsecase.ClearHistory(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgDelete})
		return
	}
	if !cleared {
		c.JSON(http.StatusOK, gin.H{"message": "Nothing to clear"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

// ResolveItem returns the product behind one history item, fetching it if
// the listing could not
// POST /api/user-history/:id/resolve
func (h *HistoryHandler) ResolveItem(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	product, err := h.historyUsecase.ResolveByID(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		case errors.Is(err, domain.ErrRetryResolution):
			c.JSON(http.StatusBadGateway, gin.H{"error": msgRetry})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}
