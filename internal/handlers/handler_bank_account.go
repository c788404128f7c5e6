package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// bankAccountHandler handles connected-account management and sync triggers.
type bankAccountHandler struct {
	syncService   portssvc.SyncSvcFacade
	reviewService portssvc.ReviewSvcFacade
}

func newBankAccountHandler(ss portssvc.SyncSvcFacade, rs portssvc.ReviewSvcFacade) *bankAccountHandler {
	return &bankAccountHandler{syncService: ss, reviewService: rs}
}

// registerBankAccountRoutes registers routes for connected bank accounts.
func registerBankAccountRoutes(rg *gin.RouterGroup, syncService portssvc.SyncSvcFacade, reviewService portssvc.ReviewSvcFacade) {
	h := newBankAccountHandler(syncService, reviewService)

	accounts := rg.Group("/bank-accounts")
	{
		accounts.GET("", h.listBankAccounts)
		accounts.GET("/:bankAccountID", h.getBankAccount)
		accounts.DELETE("/:bankAccountID", h.disconnectBankAccount)
		accounts.POST("/:bankAccountID/sync", h.triggerManualSync)
		accounts.GET("/:bankAccountID/sync-logs", h.listSyncLogs)
		accounts.GET("/:bankAccountID/pending-transactions", h.listPendingTransactions)
	}
}

// listBankAccounts godoc
// @Summary List connected bank accounts
// @Tags bank-accounts
// @Produce  json
// @Success 200 {array} dto.BankAccountResponse
// @Security BearerAuth
// @Router /bank-accounts [get]
func (h *bankAccountHandler) listBankAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accounts, err := h.syncService.ListBankAccounts(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list bank accounts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bank accounts"})
		return
	}
	c.JSON(http.StatusOK, dto.ToBankAccountResponses(accounts))
}

// getBankAccount godoc
// @Summary Get a connected bank account
// @Tags bank-accounts
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Success 200 {object} dto.BankAccountResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID} [get]
func (h *bankAccountHandler) getBankAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	account, err := h.syncService.GetBankAccount(c.Request.Context(), bankAccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bank account not found"})
			return
		}
		logger.Error("Failed to get bank account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get bank account"})
		return
	}
	c.JSON(http.StatusOK, dto.ToBankAccountResponse(*account))
}

// disconnectBankAccount godoc
// @Summary Disconnect a bank account
// @Description Disables syncing. Imported transactions and history are kept.
// @Tags bank-accounts
// @Param   bankAccountID path string true "Bank account ID"
// @Success 204 "Disconnected"
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID} [delete]
func (h *bankAccountHandler) disconnectBankAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	if err := h.syncService.Disconnect(c.Request.Context(), bankAccountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bank account not found"})
			return
		}
		logger.Error("Failed to disconnect bank account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect bank account"})
		return
	}
	c.Status(http.StatusNoContent)
}

// triggerManualSync godoc
// @Summary Trigger a manual sync
// @Description Starts an incremental sync as a background task and returns the sync log id
// @Tags bank-accounts
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Success 202 {object} dto.ManualSyncResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Sync already in progress"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/sync [post]
func (h *bankAccountHandler) triggerManualSync(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	syncLogID, err := h.syncService.StartManualSync(c.Request.Context(), bankAccountID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Bank account not found"})
		case errors.Is(err, apperrors.ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": "A sync is already running for this account"})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to start manual sync", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sync"})
		}
		return
	}

	logger.Info("Manual sync started", slog.String("bank_account_id", bankAccountID), slog.String("sync_log_id", syncLogID))
	c.JSON(http.StatusAccepted, dto.ManualSyncResponse{SyncLogID: syncLogID})
}

// listSyncLogs godoc
// @Summary List sync attempts for an account
// @Tags bank-accounts
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Param   limit query int false "Page size (default 20)"
// @Param   nextToken query string false "Pagination token from the previous page"
// @Success 200 {object} dto.SyncLogListResponse
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/sync-logs [get]
func (h *bankAccountHandler) listSyncLogs(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}
	var nextToken *string
	if raw := c.Query("nextToken"); raw != "" {
		nextToken = &raw
	}

	logs, token, err := h.syncService.ListSyncLogs(c.Request.Context(), bankAccountID, limit, nextToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list sync logs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sync logs"})
		return
	}

	c.JSON(http.StatusOK, dto.SyncLogListResponse{SyncLogs: logs, NextToken: token})
}

// listPendingTransactions godoc
// @Summary List the review queue for an account
// @Tags bank-accounts
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Success 200 {array} dto.PendingTransactionResponse
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/pending-transactions [get]
func (h *bankAccountHandler) listPendingTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	pendings, err := h.reviewService.ListPendingTransactions(c.Request.Context(), bankAccountID)
	if err != nil {
		logger.Error("Failed to list pending transactions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending transactions"})
		return
	}

	out := make([]dto.PendingTransactionResponse, 0, len(pendings))
	for _, p := range pendings {
		out = append(out, dto.ToPendingTransactionResponse(p))
	}
	c.JSON(http.StatusOK, out)
}
