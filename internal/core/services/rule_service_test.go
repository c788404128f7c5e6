package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/core/services"
	"github.com/rentbooks/property_management_app/internal/dto"
)

const testUserID = "user-1"

type RuleServiceTestSuite struct {
	suite.Suite
	ruleRepo     *MockMatchingRuleRepository
	reprocessSvc *MockReprocessService
	service      portssvc.RuleSvcFacade
	ctx          context.Context
}

func (s *RuleServiceTestSuite) SetupTest() {
	s.ruleRepo = new(MockMatchingRuleRepository)
	s.reprocessSvc = new(MockReprocessService)
	s.service = services.NewRuleService(s.ruleRepo, s.reprocessSvc)
	s.ctx = context.Background()
}

func validSaveRequest() dto.SaveRuleRequest {
	return dto.SaveRuleRequest{
		Name:     "Rent income",
		Priority: 1,
		Enabled:  true,
		Conditions: dto.RuleConditionsSpec{
			Operator: "AND",
			Conditions: []dto.RuleConditionSpec{
				{Field: "description", MatchType: "contains", Value: "rent"},
			},
		},
		PropertyID: strPtr("prop-1"),
		Type:       strPtr("INCOME"),
		Category:   strPtr("RENT"),
	}
}

func (s *RuleServiceTestSuite) expectScopedReprocess(result domain.ReprocessResult) {
	s.reprocessSvc.On("ReprocessPendingTransactions", s.ctx, mock.MatchedBy(func(scope *string) bool {
		return scope != nil && *scope == testAccountID
	})).Return(result, nil).Once()
}

func (s *RuleServiceTestSuite) TestCreateRuleSavesAndReprocesses() {
	s.ruleRepo.On("SaveRule", s.ctx, mock.MatchedBy(func(rule domain.MatchingRule) bool {
		return rule.Name == "Rent income" &&
			rule.BankAccountID != nil && *rule.BankAccountID == testAccountID &&
			rule.RuleID != "" &&
			rule.CreatedBy == testUserID
	})).Return(nil).Once()
	s.expectScopedReprocess(domain.ReprocessResult{Processed: 3, Approved: 1})

	rule, reprocess, err := s.service.CreateRule(s.ctx, testAccountID, validSaveRequest(), testUserID)

	s.Require().NoError(err)
	s.Equal("Rent income", rule.Name)
	s.Equal(1, reprocess.Approved)
	s.ruleRepo.AssertExpectations(s.T())
	s.reprocessSvc.AssertExpectations(s.T())
}

func (s *RuleServiceTestSuite) TestCreateRuleRejectsInvalidCategoryForType() {
	req := validSaveRequest()
	req.Category = strPtr("MAINTENANCE") // expense category on INCOME

	_, _, err := s.service.CreateRule(s.ctx, testAccountID, req, testUserID)

	s.ErrorIs(err, apperrors.ErrValidation)
	s.ruleRepo.AssertNotCalled(s.T(), "SaveRule", mock.Anything, mock.Anything)
}

func (s *RuleServiceTestSuite) TestCreateRuleRejectsNumericMatchOnTextField() {
	req := validSaveRequest()
	req.Conditions.Conditions = []dto.RuleConditionSpec{
		{Field: "description", MatchType: "greaterThan", Value: "500"},
	}

	_, _, err := s.service.CreateRule(s.ctx, testAccountID, req, testUserID)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *RuleServiceTestSuite) TestCreateRuleRejectsNonNumericAmountValue() {
	req := validSaveRequest()
	req.Conditions.Conditions = []dto.RuleConditionSpec{
		{Field: "amount", MatchType: "greaterThan", Value: "lots"},
	}

	_, _, err := s.service.CreateRule(s.ctx, testAccountID, req, testUserID)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *RuleServiceTestSuite) TestUpdateRuleRejectsGlobalRule() {
	s.ruleRepo.On("FindRuleByID", s.ctx, "rule-g").
		Return(&domain.MatchingRule{RuleID: "rule-g", BankAccountID: nil}, nil).Once()

	_, _, err := s.service.UpdateRule(s.ctx, testAccountID, "rule-g", validSaveRequest(), testUserID)

	s.ErrorIs(err, apperrors.ErrValidation)
	s.ruleRepo.AssertNotCalled(s.T(), "UpdateRule", mock.Anything, mock.Anything)
}

func (s *RuleServiceTestSuite) TestUpdateRuleHidesOtherAccountsRules() {
	s.ruleRepo.On("FindRuleByID", s.ctx, "rule-x").
		Return(&domain.MatchingRule{RuleID: "rule-x", BankAccountID: strPtr("other-acct")}, nil).Once()

	_, _, err := s.service.UpdateRule(s.ctx, testAccountID, "rule-x", validSaveRequest(), testUserID)

	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *RuleServiceTestSuite) TestUpdateRuleAppliesRequestAndReprocesses() {
	existing := &domain.MatchingRule{
		RuleID:        "rule-1",
		BankAccountID: strPtr(testAccountID),
		Name:          "Old name",
		AuditFields:   domain.AuditFields{CreatedBy: "someone-else"},
	}
	s.ruleRepo.On("FindRuleByID", s.ctx, "rule-1").Return(existing, nil).Once()
	s.ruleRepo.On("UpdateRule", s.ctx, mock.MatchedBy(func(rule domain.MatchingRule) bool {
		return rule.RuleID == "rule-1" &&
			rule.Name == "Rent income" &&
			rule.LastUpdatedBy == testUserID &&
			rule.CreatedBy == "someone-else"
	})).Return(nil).Once()
	s.expectScopedReprocess(domain.ReprocessResult{})

	rule, _, err := s.service.UpdateRule(s.ctx, testAccountID, "rule-1", validSaveRequest(), testUserID)

	s.Require().NoError(err)
	s.Equal("Rent income", rule.Name)
	s.ruleRepo.AssertExpectations(s.T())
}

func (s *RuleServiceTestSuite) TestDeleteRuleRemovesAndReprocesses() {
	s.ruleRepo.On("FindRuleByID", s.ctx, "rule-1").
		Return(&domain.MatchingRule{RuleID: "rule-1", BankAccountID: strPtr(testAccountID)}, nil).Once()
	s.ruleRepo.On("DeleteRule", s.ctx, "rule-1").Return(nil).Once()
	s.expectScopedReprocess(domain.ReprocessResult{Processed: 2})

	result, err := s.service.DeleteRule(s.ctx, testAccountID, "rule-1")

	s.Require().NoError(err)
	s.Equal(2, result.Processed)
	s.ruleRepo.AssertExpectations(s.T())
}

func (s *RuleServiceTestSuite) TestReorderRequiresExactAccountRuleSet() {
	rules := []domain.MatchingRule{
		{RuleID: "a1", BankAccountID: strPtr(testAccountID)},
		{RuleID: "a2", BankAccountID: strPtr(testAccountID)},
		{RuleID: "g1"}, // global, excluded from reordering
	}
	s.ruleRepo.On("ListRulesForAccount", s.ctx, testAccountID).Return(rules, nil).Times(3)

	// Missing a rule.
	_, err := s.service.ReorderRules(s.ctx, testAccountID, []string{"a1"})
	s.ErrorIs(err, apperrors.ErrValidation)

	// Foreign rule id.
	_, err = s.service.ReorderRules(s.ctx, testAccountID, []string{"a1", "other"})
	s.ErrorIs(err, apperrors.ErrValidation)

	// Global rule id smuggled in.
	_, err = s.service.ReorderRules(s.ctx, testAccountID, []string{"a1", "g1"})
	s.ErrorIs(err, apperrors.ErrValidation)

	s.ruleRepo.AssertNotCalled(s.T(), "UpdatePriorities", mock.Anything, mock.Anything, mock.Anything)
}

func (s *RuleServiceTestSuite) TestReorderRejectsDuplicateRuleIDs() {
	rules := []domain.MatchingRule{
		{RuleID: "a1", BankAccountID: strPtr(testAccountID)},
		{RuleID: "a2", BankAccountID: strPtr(testAccountID)},
	}
	s.ruleRepo.On("ListRulesForAccount", s.ctx, testAccountID).Return(rules, nil).Once()

	// Same length as the owned set, but a2 is silently displaced.
	_, err := s.service.ReorderRules(s.ctx, testAccountID, []string{"a1", "a1"})

	s.ErrorIs(err, apperrors.ErrValidation)
	s.ruleRepo.AssertNotCalled(s.T(), "UpdatePriorities", mock.Anything, mock.Anything, mock.Anything)
}

func (s *RuleServiceTestSuite) TestReorderRewritesPrioritiesAndReprocesses() {
	rules := []domain.MatchingRule{
		{RuleID: "a1", BankAccountID: strPtr(testAccountID), Priority: 0},
		{RuleID: "a2", BankAccountID: strPtr(testAccountID), Priority: 1},
	}
	s.ruleRepo.On("ListRulesForAccount", s.ctx, testAccountID).Return(rules, nil).Once()
	s.ruleRepo.On("UpdatePriorities", s.ctx, testAccountID, []string{"a2", "a1"}).Return(nil).Once()
	s.expectScopedReprocess(domain.ReprocessResult{})

	_, err := s.service.ReorderRules(s.ctx, testAccountID, []string{"a2", "a1"})

	s.Require().NoError(err)
	s.ruleRepo.AssertExpectations(s.T())
}

func (s *RuleServiceTestSuite) TestTestRulesEvaluatesWithoutPersisting() {
	req := dto.TestRulesRequest{
		Transaction: dto.TestTransaction{
			Description: "Monthly rent payment",
			Amount:      "750.00",
		},
		Rules: []dto.SaveRuleRequest{validSaveRequest()},
	}

	resp, err := s.service.TestRules(s.ctx, req)

	s.Require().NoError(err)
	s.True(resp.IsFullyMatched)
	s.Equal("prop-1", *resp.PropertyID)
	s.Equal(domain.Income, *resp.Type)
	s.Equal("RENT", *resp.Category)
	s.Equal([]string{"Rent income"}, resp.MatchedRules)
	s.ruleRepo.AssertNotCalled(s.T(), "SaveRule", mock.Anything, mock.Anything)
}

func (s *RuleServiceTestSuite) TestTestRulesRejectsBadAmount() {
	req := dto.TestRulesRequest{
		Transaction: dto.TestTransaction{Amount: "many"},
		Rules:       []dto.SaveRuleRequest{validSaveRequest()},
	}

	_, err := s.service.TestRules(s.ctx, req)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func TestRuleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RuleServiceTestSuite))
}
