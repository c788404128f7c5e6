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

// bankConnectionHandler handles the OAuth connect flow endpoints.
type bankConnectionHandler struct {
	connectionService portssvc.ConnectionSvcFacade
}

func newBankConnectionHandler(cs portssvc.ConnectionSvcFacade) *bankConnectionHandler {
	return &bankConnectionHandler{connectionService: cs}
}

// registerBankConnectionRoutes registers routes for connecting bank accounts.
func registerBankConnectionRoutes(rg *gin.RouterGroup, connectionService portssvc.ConnectionSvcFacade) {
	h := newBankConnectionHandler(connectionService)

	connections := rg.Group("/bank-connections")
	{
		connections.POST("", h.startConnection)
		connections.GET("/callback", h.handleCallback)
		connections.POST("/complete", h.completeConnection)
	}
}

// startConnection godoc
// @Summary Start connecting a bank account
// @Description Returns the provider authorization URL the client should redirect the user to
// @Tags bank-connections
// @Accept  json
// @Produce  json
// @Param   request body dto.ConnectRequest true "Connection parameters"
// @Success 200 {object} dto.ConnectResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 500 {object} map[string]string "Provider not configured"
// @Security BearerAuth
// @Router /bank-connections [post]
func (h *bankConnectionHandler) startConnection(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for startConnection", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	authURL, err := h.connectionService.GenerateAuthURL(c.Request.Context(), req.SyncFromDays)
	if err != nil {
		if errors.Is(err, apperrors.ErrOAuthConfigMissing) {
			logger.Error("Bank provider OAuth is not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Bank connections are not configured"})
			return
		}
		logger.Error("Failed to generate auth URL", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start bank connection"})
		return
	}

	c.JSON(http.StatusOK, dto.ConnectResponse{AuthURL: authURL})
}

// handleCallback godoc
// @Summary OAuth callback
// @Description Validates state, exchanges the code and returns a pending connection id awaiting in-app approval
// @Tags bank-connections
// @Produce  json
// @Param   state query string true "State token from the authorization redirect"
// @Param   code query string true "Authorization code"
// @Success 200 {object} dto.CallbackResponse
// @Failure 400 {object} map[string]string "Invalid or expired state"
// @Failure 502 {object} map[string]string "Token exchange failed"
// @Security BearerAuth
// @Router /bank-connections/callback [get]
func (h *bankConnectionHandler) handleCallback(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state and code query parameters are required"})
		return
	}

	pendingConnectionID, err := h.connectionService.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrExpiredState):
			logger.Warn("OAuth state expired")
			c.JSON(http.StatusBadRequest, gin.H{"error": "The connection attempt expired. Please start over."})
		case errors.Is(err, apperrors.ErrInvalidState):
			logger.Warn("OAuth state invalid or reused")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection state. Please start over."})
		case errors.Is(err, apperrors.ErrOAuthExchangeFailed):
			logger.Error("OAuth code exchange failed", slog.String("error", err.Error()))
			c.JSON(http.StatusBadGateway, gin.H{"error": "The bank rejected the connection. Please try again."})
		default:
			logger.Error("Callback handling failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete bank callback"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.CallbackResponse{
		PendingConnectionID: pendingConnectionID,
		RequiresApproval:    true,
	})
}

// completeConnection godoc
// @Summary Complete a pending bank connection
// @Description Verifies in-app approval, saves the account and starts the initial import
// @Tags bank-connections
// @Accept  json
// @Produce  json
// @Param   request body dto.CompleteConnectionRequest true "Pending connection details"
// @Success 201 {object} dto.CompleteConnectionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Pending connection not found or expired"
// @Failure 409 {object} map[string]string "Account already connected"
// @Failure 502 {object} map[string]string "Approval still outstanding or provider unreachable"
// @Security BearerAuth
// @Router /bank-connections/complete [post]
func (h *bankConnectionHandler) completeConnection(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CompleteConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for completeConnection", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, syncLogID, err := h.connectionService.CompleteConnection(c.Request.Context(), req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Pending connection not found or expired. Please start over."})
		case errors.Is(err, apperrors.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "This bank account is already connected."})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrProviderUnauthorized):
			logger.Warn("Provider rejected access during completion, approval likely outstanding")
			c.JSON(http.StatusBadGateway, gin.H{"error": "The bank has not approved this connection yet. Approve it in your banking app and retry."})
		case errors.Is(err, apperrors.ErrProviderUnavailable):
			logger.Warn("Provider unreachable during completion")
			c.JSON(http.StatusBadGateway, gin.H{"error": "The bank could not be reached. Please try again."})
		default:
			logger.Error("Failed to complete connection", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete bank connection"})
		}
		return
	}

	logger.Info("Bank account connected", slog.String("bank_account_id", account.BankAccountID))
	c.JSON(http.StatusCreated, dto.CompleteConnectionResponse{
		BankAccountID: account.BankAccountID,
		SyncLogID:     syncLogID,
	})
}
