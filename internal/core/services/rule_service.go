package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// ruleService is the account-scoped rule CRUD surface. Every mutation
// triggers a reprocessing pass over the account's pending transactions and
// returns its counts.
type ruleService struct {
	ruleRepo     portsrepo.MatchingRuleRepository
	reprocessSvc portssvc.ReprocessSvcFacade
}

// NewRuleService creates the rule service.
func NewRuleService(ruleRepo portsrepo.MatchingRuleRepository, reprocessSvc portssvc.ReprocessSvcFacade) portssvc.RuleSvcFacade {
	return &ruleService{ruleRepo: ruleRepo, reprocessSvc: reprocessSvc}
}

var _ portssvc.RuleSvcFacade = (*ruleService)(nil)

func (s *ruleService) CreateRule(ctx context.Context, bankAccountID string, req dto.SaveRuleRequest, userID string) (*domain.MatchingRule, domain.ReprocessResult, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.ReprocessResult{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	now := time.Now().UTC()
	rule := domain.MatchingRule{
		RuleID:        uuid.NewString(),
		BankAccountID: &bankAccountID,
		Name:          req.Name,
		Priority:      req.Priority,
		Enabled:       req.Enabled,
		Conditions:    req.ToDomainConditions(),
		PropertyID:    req.PropertyID,
		Type:          req.TransactionTypeOrNil(),
		Category:      req.Category,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.ruleRepo.SaveRule(ctx, rule); err != nil {
		return nil, domain.ReprocessResult{}, fmt.Errorf("failed to save rule: %w", err)
	}

	reprocess := s.reprocess(ctx, bankAccountID)
	return &rule, reprocess, nil
}

func (s *ruleService) UpdateRule(ctx context.Context, bankAccountID, ruleID string, req dto.SaveRuleRequest, userID string) (*domain.MatchingRule, domain.ReprocessResult, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.ReprocessResult{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	rule, err := s.ownedRule(ctx, bankAccountID, ruleID)
	if err != nil {
		return nil, domain.ReprocessResult{}, err
	}

	rule.Name = req.Name
	rule.Priority = req.Priority
	rule.Enabled = req.Enabled
	rule.Conditions = req.ToDomainConditions()
	rule.PropertyID = req.PropertyID
	rule.Type = req.TransactionTypeOrNil()
	rule.Category = req.Category
	rule.LastUpdatedAt = time.Now().UTC()
	rule.LastUpdatedBy = userID

	if err := s.ruleRepo.UpdateRule(ctx, *rule); err != nil {
		return nil, domain.ReprocessResult{}, fmt.Errorf("failed to update rule: %w", err)
	}

	reprocess := s.reprocess(ctx, bankAccountID)
	return rule, reprocess, nil
}

func (s *ruleService) DeleteRule(ctx context.Context, bankAccountID, ruleID string) (domain.ReprocessResult, error) {
	if _, err := s.ownedRule(ctx, bankAccountID, ruleID); err != nil {
		return domain.ReprocessResult{}, err
	}
	if err := s.ruleRepo.DeleteRule(ctx, ruleID); err != nil {
		return domain.ReprocessResult{}, fmt.Errorf("failed to delete rule: %w", err)
	}
	return s.reprocess(ctx, bankAccountID), nil
}

func (s *ruleService) ReorderRules(ctx context.Context, bankAccountID string, orderedRuleIDs []string) (domain.ReprocessResult, error) {
	rules, err := s.ruleRepo.ListRulesForAccount(ctx, bankAccountID)
	if err != nil {
		return domain.ReprocessResult{}, err
	}

	owned := make(map[string]bool)
	for _, r := range rules {
		if !r.IsGlobal() {
			owned[r.RuleID] = true
		}
	}
	if len(orderedRuleIDs) != len(owned) {
		return domain.ReprocessResult{}, fmt.Errorf("%w: reorder must list all %d account rules", apperrors.ErrValidation, len(owned))
	}
	seen := make(map[string]bool, len(orderedRuleIDs))
	for _, id := range orderedRuleIDs {
		if !owned[id] {
			return domain.ReprocessResult{}, fmt.Errorf("%w: rule %s does not belong to this account", apperrors.ErrValidation, id)
		}
		if seen[id] {
			return domain.ReprocessResult{}, fmt.Errorf("%w: rule %s listed more than once", apperrors.ErrValidation, id)
		}
		seen[id] = true
	}

	if err := s.ruleRepo.UpdatePriorities(ctx, bankAccountID, orderedRuleIDs); err != nil {
		return domain.ReprocessResult{}, fmt.Errorf("failed to reorder rules: %w", err)
	}
	return s.reprocess(ctx, bankAccountID), nil
}

func (s *ruleService) ListRules(ctx context.Context, bankAccountID string) ([]domain.MatchingRule, error) {
	return s.ruleRepo.ListRulesForAccount(ctx, bankAccountID)
}

// TestRules runs the engine against a sample transaction without touching
// storage. Rule names double as ids in the matchedRules output since the
// candidate rules have none yet.
func (s *ruleService) TestRules(ctx context.Context, req dto.TestRulesRequest) (dto.TestRulesResponse, error) {
	amount, err := decimal.NewFromString(req.Transaction.Amount)
	if err != nil {
		return dto.TestRulesResponse{}, fmt.Errorf("%w: amount %q is not a number", apperrors.ErrValidation, req.Transaction.Amount)
	}

	rules := make([]domain.MatchingRule, 0, len(req.Rules))
	for i, r := range req.Rules {
		if err := r.Validate(); err != nil {
			return dto.TestRulesResponse{}, fmt.Errorf("%w: rule %d: %v", apperrors.ErrValidation, i, err)
		}
		rules = append(rules, domain.MatchingRule{
			RuleID:     r.Name,
			Name:       r.Name,
			Priority:   r.Priority,
			Enabled:    r.Enabled,
			Conditions: r.ToDomainConditions(),
			PropertyID: r.PropertyID,
			Type:       r.TransactionTypeOrNil(),
			Category:   r.Category,
		})
	}

	txn := domain.BankTransaction{
		Description:      req.Transaction.Description,
		CounterpartyName: req.Transaction.CounterpartyName,
		Reference:        req.Transaction.Reference,
		Merchant:         req.Transaction.Merchant,
		Amount:           amount,
	}

	match := EvaluateRules(txn, OrderRules(rules))
	return dto.TestRulesResponse{
		PropertyID:     match.PropertyID,
		Type:           match.Type,
		Category:       match.Category,
		MatchedRules:   match.MatchedRules,
		IsFullyMatched: match.IsFullyMatched(),
	}, nil
}

// ownedRule loads a rule and verifies it is account-scoped to bankAccountID.
// Global rules are read-only through this surface.
func (s *ruleService) ownedRule(ctx context.Context, bankAccountID, ruleID string) (*domain.MatchingRule, error) {
	rule, err := s.ruleRepo.FindRuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.IsGlobal() {
		return nil, fmt.Errorf("%w: global rules cannot be modified", apperrors.ErrValidation)
	}
	if *rule.BankAccountID != bankAccountID {
		return nil, apperrors.ErrNotFound
	}
	return rule, nil
}

// reprocess runs the pending-transaction pass for the account. Reprocessing
// failures are logged, not surfaced: the rule mutation itself succeeded.
func (s *ruleService) reprocess(ctx context.Context, bankAccountID string) domain.ReprocessResult {
	result, err := s.reprocessSvc.ReprocessPendingTransactions(ctx, &bankAccountID)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Reprocessing after rule change failed",
			slog.String("bank_account_id", bankAccountID), slog.String("error", err.Error()))
	}
	return result
}
