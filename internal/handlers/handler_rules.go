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

// ruleHandler handles matching-rule CRUD and the dry-run test endpoint.
type ruleHandler struct {
	ruleService portssvc.RuleSvcFacade
}

func newRuleHandler(rs portssvc.RuleSvcFacade) *ruleHandler {
	return &ruleHandler{ruleService: rs}
}

// registerRuleRoutes registers rule management routes. Rules live under their
// account; the test endpoint is account-independent because it never touches
// storage.
func registerRuleRoutes(rg *gin.RouterGroup, ruleService portssvc.RuleSvcFacade) {
	h := newRuleHandler(ruleService)

	rules := rg.Group("/bank-accounts/:bankAccountID/rules")
	{
		rules.GET("", h.listRules)
		rules.POST("", h.createRule)
		rules.PUT("/reorder", h.reorderRules)
		rules.PUT("/:ruleID", h.updateRule)
		rules.DELETE("/:ruleID", h.deleteRule)
	}

	rg.POST("/rules/test", h.testRules)
}

// listRules godoc
// @Summary List rules for an account
// @Description Returns the account's rules followed by global rules, in evaluation order
// @Tags rules
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Success 200 {array} domain.MatchingRule
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/rules [get]
func (h *ruleHandler) listRules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	rules, err := h.ruleService.ListRules(c.Request.Context(), bankAccountID)
	if err != nil {
		logger.Error("Failed to list rules", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// createRule godoc
// @Summary Create a rule
// @Description Creates an account-scoped rule and reprocesses the account's pending transactions
// @Tags rules
// @Accept  json
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Param   request body dto.SaveRuleRequest true "Rule definition"
// @Success 201 {object} dto.RuleMutationResponse
// @Failure 400 {object} map[string]string "Invalid rule"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/rules [post]
func (h *ruleHandler) createRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	var req dto.SaveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createRule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rule, reprocess, err := h.ruleService.CreateRule(c.Request.Context(), bankAccountID, req, userID)
	if err != nil {
		h.writeRuleError(c, logger, err, "Failed to create rule")
		return
	}

	logger.Info("Rule created", slog.String("rule_id", rule.RuleID), slog.Int("reprocessed", reprocess.Processed))
	c.JSON(http.StatusCreated, dto.RuleMutationResponse{Rule: rule, Reprocess: reprocess})
}

// updateRule godoc
// @Summary Update a rule
// @Description Replaces an account-scoped rule and reprocesses the account's pending transactions
// @Tags rules
// @Accept  json
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Param   ruleID path string true "Rule ID"
// @Param   request body dto.SaveRuleRequest true "Rule definition"
// @Success 200 {object} dto.RuleMutationResponse
// @Failure 400 {object} map[string]string "Invalid rule or global rule"
// @Failure 404 {object} map[string]string "Rule not found"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/rules/{ruleID} [put]
func (h *ruleHandler) updateRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")
	ruleID := c.Param("ruleID")

	var req dto.SaveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updateRule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rule, reprocess, err := h.ruleService.UpdateRule(c.Request.Context(), bankAccountID, ruleID, req, userID)
	if err != nil {
		h.writeRuleError(c, logger, err, "Failed to update rule")
		return
	}

	c.JSON(http.StatusOK, dto.RuleMutationResponse{Rule: rule, Reprocess: reprocess})
}

// deleteRule godoc
// @Summary Delete a rule
// @Tags rules
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Param   ruleID path string true "Rule ID"
// @Success 200 {object} dto.RuleMutationResponse
// @Failure 400 {object} map[string]string "Global rule"
// @Failure 404 {object} map[string]string "Rule not found"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/rules/{ruleID} [delete]
func (h *ruleHandler) deleteRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")
	ruleID := c.Param("ruleID")

	reprocess, err := h.ruleService.DeleteRule(c.Request.Context(), bankAccountID, ruleID)
	if err != nil {
		h.writeRuleError(c, logger, err, "Failed to delete rule")
		return
	}

	c.JSON(http.StatusOK, dto.RuleMutationResponse{Reprocess: reprocess})
}

// reorderRules godoc
// @Summary Reorder account rules
// @Description Reassigns priorities of the account's rules to match the listed order
// @Tags rules
// @Accept  json
// @Produce  json
// @Param   bankAccountID path string true "Bank account ID"
// @Param   request body dto.ReorderRulesRequest true "Complete ordered list of account rule ids"
// @Success 200 {object} dto.RuleMutationResponse
// @Failure 400 {object} map[string]string "Incomplete or foreign rule list"
// @Security BearerAuth
// @Router /bank-accounts/{bankAccountID}/rules/reorder [put]
func (h *ruleHandler) reorderRules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	bankAccountID := c.Param("bankAccountID")

	var req dto.ReorderRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for reorderRules", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reprocess, err := h.ruleService.ReorderRules(c.Request.Context(), bankAccountID, req.OrderedRuleIDs)
	if err != nil {
		h.writeRuleError(c, logger, err, "Failed to reorder rules")
		return
	}

	c.JSON(http.StatusOK, dto.RuleMutationResponse{Reprocess: reprocess})
}

// testRules godoc
// @Summary Test rules against a sample transaction
// @Description Evaluates candidate rules without persisting anything
// @Tags rules
// @Accept  json
// @Produce  json
// @Param   request body dto.TestRulesRequest true "Sample transaction and candidate rules"
// @Success 200 {object} dto.TestRulesResponse
// @Failure 400 {object} map[string]string "Invalid sample or rules"
// @Security BearerAuth
// @Router /rules/test [post]
func (h *ruleHandler) testRules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.TestRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for testRules", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.ruleService.TestRules(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to test rules", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to test rules"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ruleHandler) writeRuleError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
