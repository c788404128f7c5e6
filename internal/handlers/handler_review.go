package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// reviewHandler handles manual approval of pending transactions.
type reviewHandler struct {
	reviewService portssvc.ReviewSvcFacade
}

func newReviewHandler(rs portssvc.ReviewSvcFacade) *reviewHandler {
	return &reviewHandler{reviewService: rs}
}

// registerReviewRoutes registers review-queue routes.
func registerReviewRoutes(rg *gin.RouterGroup, reviewService portssvc.ReviewSvcFacade) {
	h := newReviewHandler(reviewService)

	pending := rg.Group("/pending-transactions")
	{
		pending.POST("/:pendingTransactionID/approve", h.approvePendingTransaction)
	}
}

// approvePendingTransaction godoc
// @Summary Approve a pending transaction
// @Description Finalizes the pending transaction with the reviewer's assignment, which may override candidates
// @Tags pending-transactions
// @Accept  json
// @Produce  json
// @Param   pendingTransactionID path string true "Pending transaction ID"
// @Param   request body dto.ApprovePendingRequest true "Final assignment"
// @Success 200 {object} domain.Transaction
// @Failure 400 {object} map[string]string "Invalid assignment"
// @Failure 404 {object} map[string]string "Pending transaction not found"
// @Security BearerAuth
// @Router /pending-transactions/{pendingTransactionID}/approve [post]
func (h *reviewHandler) approvePendingTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	pendingTransactionID := c.Param("pendingTransactionID")

	var req dto.ApprovePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for approvePendingTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txn, err := h.reviewService.ApprovePendingTransaction(c.Request.Context(), pendingTransactionID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Pending transaction not found"})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to approve pending transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve transaction"})
		}
		return
	}

	logger.Info("Pending transaction approved", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusOK, txn)
}
