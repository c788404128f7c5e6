package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/core/services"
	"github.com/rentbooks/property_management_app/internal/dto"
)

type ReviewServiceTestSuite struct {
	suite.Suite
	pendingRepo  *MockPendingTransactionRepository
	bankTxnRepo  *MockBankTransactionRepository
	txnRepo      *MockTransactionRepository
	propertyRepo *MockPropertyRepository
	service      portssvc.ReviewSvcFacade
	ctx          context.Context
}

func (s *ReviewServiceTestSuite) SetupTest() {
	s.pendingRepo = new(MockPendingTransactionRepository)
	s.bankTxnRepo = new(MockBankTransactionRepository)
	s.txnRepo = new(MockTransactionRepository)
	s.propertyRepo = new(MockPropertyRepository)
	s.service = services.NewReviewService(s.pendingRepo, s.bankTxnRepo, s.txnRepo, s.propertyRepo)
	s.ctx = context.Background()
}

func approveRequest() dto.ApprovePendingRequest {
	return dto.ApprovePendingRequest{
		PropertyID: "prop-1",
		Type:       "EXPENSE",
		Category:   "MAINTENANCE",
	}
}

func (s *ReviewServiceTestSuite) TestApproveFinalizesWithReviewerAssignment() {
	pending := pendingRow("pend-1", "btxn-1")
	// The rule candidate said INCOME/RENT; the reviewer overrides it.
	pending.Type = typePtr(domain.Income)
	pending.Category = strPtr("RENT")

	s.pendingRepo.On("FindPendingTransactionByID", s.ctx, "pend-1").
		Return(&pending, nil).Once()
	s.propertyRepo.On("FindPropertyByID", s.ctx, "prop-1").
		Return(&domain.Property{PropertyID: "prop-1", IsActive: true}, nil).Once()
	s.bankTxnRepo.On("FindBankTransactionByID", s.ctx, "btxn-1").
		Return(storedBankTxn("btxn-1"), nil).Once()
	s.txnRepo.On("ApproveBankTransaction", s.ctx, mock.MatchedBy(func(txn domain.Transaction) bool {
		return txn.PropertyID == "prop-1" &&
			txn.Type == domain.Expense &&
			txn.Category == "MAINTENANCE" &&
			txn.Amount.Equal(decimal.RequireFromString("750.00")) &&
			txn.CreatedBy == testUserID
	}), "btxn-1", mock.MatchedBy(func(pendingID *string) bool {
		return pendingID != nil && *pendingID == "pend-1"
	})).Return(nil).Once()

	txn, err := s.service.ApprovePendingTransaction(s.ctx, "pend-1", approveRequest(), testUserID)

	s.Require().NoError(err)
	s.Equal(domain.Expense, txn.Type)
	s.Require().NotNil(txn.BankTransactionID)
	s.Equal("btxn-1", *txn.BankTransactionID)
	s.txnRepo.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestApproveRejectsUnknownPending() {
	s.pendingRepo.On("FindPendingTransactionByID", s.ctx, "pend-x").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := s.service.ApprovePendingTransaction(s.ctx, "pend-x", approveRequest(), testUserID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ReviewServiceTestSuite) TestApproveRejectsCategoryTypeMismatch() {
	pending := pendingRow("pend-1", "btxn-1")
	s.pendingRepo.On("FindPendingTransactionByID", s.ctx, "pend-1").
		Return(&pending, nil).Once()

	req := approveRequest()
	req.Category = "RENT" // income category on an EXPENSE approval

	_, err := s.service.ApprovePendingTransaction(s.ctx, "pend-1", req, testUserID)

	s.ErrorIs(err, apperrors.ErrValidation)
	s.txnRepo.AssertNotCalled(s.T(), "ApproveBankTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReviewServiceTestSuite) TestApproveRejectsMissingProperty() {
	pending := pendingRow("pend-1", "btxn-1")
	s.pendingRepo.On("FindPendingTransactionByID", s.ctx, "pend-1").
		Return(&pending, nil).Once()
	s.propertyRepo.On("FindPropertyByID", s.ctx, "prop-1").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := s.service.ApprovePendingTransaction(s.ctx, "pend-1", approveRequest(), testUserID)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ReviewServiceTestSuite) TestApproveRejectsInactiveProperty() {
	pending := pendingRow("pend-1", "btxn-1")
	s.pendingRepo.On("FindPendingTransactionByID", s.ctx, "pend-1").
		Return(&pending, nil).Once()
	s.propertyRepo.On("FindPropertyByID", s.ctx, "prop-1").
		Return(&domain.Property{PropertyID: "prop-1", IsActive: false}, nil).Once()

	_, err := s.service.ApprovePendingTransaction(s.ctx, "pend-1", approveRequest(), testUserID)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ReviewServiceTestSuite) TestListPendingDelegatesToRepository() {
	s.pendingRepo.On("ListPendingByAccountID", s.ctx, testAccountID).
		Return([]domain.PendingTransaction{pendingRow("pend-1", "btxn-1")}, nil).Once()

	pendings, err := s.service.ListPendingTransactions(s.ctx, testAccountID)

	s.Require().NoError(err)
	s.Len(pendings, 1)
}

func TestReviewServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceTestSuite))
}
