package wallet

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"chemshop-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Balance(ctx context.Context, customerID int64) (int64, error)
	Summary(ctx context.Context, customerID int64) (*Wallet, []Transaction, error)
	Credit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error)
	Debit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error)

	RequestRecharge(ctx context.Context, customerID, amount int64) (*RechargeRequest, error)
	PendingRecharges(ctx context.Context) ([]RechargeRequest, error)
	ApproveRecharge(ctx context.Context, requestID, approvedBy int64) (*Transaction, error)
	RejectRecharge(ctx context.Context, requestID, approvedBy int64, notes string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Balance returns zero for customers without a wallet; the wallet is only
// materialized on first credit.
func (s *service) Balance(ctx context.Context, customerID int64) (int64, error) {
	w, err := s.repo.GetByCustomerID(ctx, customerID)
	if err == ErrWalletNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

func (s *service) Summary(ctx context.Context, customerID int64) (*Wallet, []Transaction, error) {
	w, err := s.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}

	txns, err := s.repo.Transactions(ctx, customerID, 10)
	if err != nil {
		return nil, nil, err
	}

	return w, txns, nil
}

func (s *service) Credit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.Credit(ctx, customerID, amount, description, refType, refID)
}

func (s *service) Debit(ctx context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.Debit(ctx, customerID, amount, description, refType, refID)
}

func (s *service) RequestRecharge(ctx context.Context, customerID, amount int64) (*RechargeRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	req := &RechargeRequest{
		RequestNumber: generateRequestNumber(),
		CustomerID:    customerID,
		Amount:        amount,
		Currency:      "IQD",
		Status:        RechargeStatusPending,
	}

	if err := s.repo.CreateRechargeRequest(ctx, req); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("recharge request created",
		zap.String("request_number", req.RequestNumber),
		zap.Int64("customer_id", customerID),
		zap.Int64("amount", amount),
	)

	return req, nil
}

func (s *service) PendingRecharges(ctx context.Context) ([]RechargeRequest, error) {
	return s.repo.ListPendingRechargeRequests(ctx)
}

// ApproveRecharge credits the wallet and closes the request. The status guard
// in the repository makes double approval a no-op failure, not a double credit.
func (s *service) ApproveRecharge(ctx context.Context, requestID, approvedBy int64) (*Transaction, error) {
	req, err := s.repo.GetRechargeRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status != RechargeStatusPending {
		return nil, ErrRechargeNotPending
	}

	err = s.repo.UpdateRechargeStatus(ctx, requestID, RechargeStatusCompleted,
		fmt.Sprintf("approved by admin %d", approvedBy), approvedBy)
	if err != nil {
		return nil, err
	}

	return s.repo.Credit(ctx, req.CustomerID, req.Amount,
		fmt.Sprintf("Wallet recharge - Request %s", req.RequestNumber),
		"recharge_request", req.RequestNumber)
}

func (s *service) RejectRecharge(ctx context.Context, requestID, approvedBy int64, notes string) error {
	return s.repo.UpdateRechargeStatus(ctx, requestID, RechargeStatusRejected, notes, approvedBy)
}

func generateRequestNumber() string {
	return fmt.Sprintf("WR%d%03d", time.Now().UnixMilli(), rand.Intn(1000))
}
