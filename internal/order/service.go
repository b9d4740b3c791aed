package order

import (
	"context"
	"errors"
	"fmt"

	"chemshop-be/internal/customer"
	"chemshop-be/internal/logger"
	"chemshop-be/internal/payment"
	"chemshop-be/internal/utils"
	"chemshop-be/internal/wallet"

	"go.uber.org/zap"
)

type Service interface {
	GetOrder(ctx context.Context, orderNumber string) (*Order, error)
	ListCustomerOrders(ctx context.Context, limit, page int32) ([]Order, error)
	ListDepartmentOrders(ctx context.Context, department string, limit, page int32) ([]Order, error)

	UpdateStatus(ctx context.Context, orderNumber string, to OrderStatus, changedBy string) error
	MarkBankPaid(ctx context.Context, orderNumber string) error
	MarkBankFailed(ctx context.Context, orderNumber string) error
	CancelPayment(ctx context.Context, orderNumber string) (*Order, error)
	PaymentStatus(ctx context.Context, orderNumber string) (*payment.StatusResult, error)
	AttachReceipt(ctx context.Context, orderNumber, url string) error
}

type service struct {
	repo      Repository
	walletSvc wallet.Service
	gateway   payment.Gateway
	payments  payment.Repository
}

func NewService(repo Repository, walletSvc wallet.Service, gateway payment.Gateway, payments payment.Repository) Service {
	return &service{
		repo:      repo,
		walletSvc: walletSvc,
		gateway:   gateway,
		payments:  payments,
	}
}

// departmentStatuses maps a department dashboard to the statuses it works.
var departmentStatuses = map[string][]OrderStatus{
	"finance":   {StatusPending, StatusFinancial, StatusPaymentFailed},
	"warehouse": {StatusWarehousePending, StatusWarehouseProcessing},
	"logistics": {StatusReadyForDelivery, StatusInTransit},
}

func (s *service) GetOrder(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := s.repo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if utils.GetCustomerRoleFromContext(ctx) != customer.RoleAdmin {
		customerID, ok := utils.GetCustomerIDFromContext(ctx)
		if !ok || o.CustomerID != customerID {
			return nil, ErrForbidden
		}
	}

	return o, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, limit, page int32) ([]Order, error) {
	customerID, ok := utils.GetCustomerIDFromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}
	return s.repo.ListByCustomer(ctx, customerID, limit, page)
}

func (s *service) ListDepartmentOrders(ctx context.Context, department string, limit, page int32) ([]Order, error) {
	statuses, ok := departmentStatuses[department]
	if !ok {
		return s.repo.ListByStatuses(ctx, nil, limit, page)
	}
	return s.repo.ListByStatuses(ctx, statuses, limit, page)
}

// UpdateStatus moves the order through the transition table and keeps the
// denormalized payment status aligned with the new state.
func (s *service) UpdateStatus(ctx context.Context, orderNumber string, to OrderStatus, changedBy string) error {
	o, err := s.repo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	next := *o
	next.Status = to
	return s.repo.UpdateStatus(ctx, orderNumber, o.Status, to, CanonicalPaymentStatus(&next), changedBy)
}

// MarkBankPaid is driven by the gateway callback: the bank portion settled,
// so the order enters financial review.
func (s *service) MarkBankPaid(ctx context.Context, orderNumber string) error {
	o, err := s.repo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	if o.Status != StatusPending {
		// callback replay after the order already advanced
		logger.FromCtx(ctx).Info("bank-paid callback ignored",
			zap.String("order_number", orderNumber),
			zap.String("status", string(o.Status)),
		)
		return nil
	}

	if err := s.payments.UpdatePaymentStatus(ctx, orderNumber, payment.StatusCompleted); err != nil && !errors.Is(err, payment.ErrPaymentNotFound) {
		return err
	}

	return s.repo.UpdateStatus(ctx, orderNumber, StatusPending, StatusFinancial, PaymentPaid, "bank_callback")
}

// MarkBankFailed handles a failed bank portion. Any wallet amount already
// debited for the order is credited back, so a half-paid hybrid order never
// strands customer money.
func (s *service) MarkBankFailed(ctx context.Context, orderNumber string) error {
	o, err := s.repo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	if o.Status == StatusPaymentFailed {
		return nil
	}
	if !CanTransition(o.Status, StatusPaymentFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusPaymentFailed)
	}

	if err := s.payments.UpdatePaymentStatus(ctx, orderNumber, payment.StatusFailed); err != nil && !errors.Is(err, payment.ErrPaymentNotFound) {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, orderNumber, o.Status, StatusPaymentFailed, PaymentFailed, "bank_callback"); err != nil {
		return err
	}

	if o.WalletAmountUsed > 0 {
		_, err := s.walletSvc.Credit(ctx, o.CustomerID, o.WalletAmountUsed,
			fmt.Sprintf("Refund for failed payment on order %s", orderNumber),
			"order", orderNumber)
		if err != nil {
			logger.FromCtx(ctx).Error("compensating wallet credit failed",
				zap.String("order_number", orderNumber),
				zap.Int64("amount", o.WalletAmountUsed),
				zap.Error(err),
			)
			return err
		}
	}

	return nil
}

// CancelPayment refunds the wallet portion in full, asks the bank to cancel
// any registered application, and moves the order to cancelled.
func (s *service) CancelPayment(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := s.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrOrderNotCancelable
	}

	log := logger.FromCtx(ctx).With(zap.String("order_number", orderNumber))

	if o.BankAmountDue > 0 {
		if _, err := s.payments.GetByOrderNumber(ctx, orderNumber); err == nil {
			if err := s.gateway.CancelPayment(ctx, orderNumber); err != nil {
				// bank cancel is best-effort: the local state wins, the
				// gateway application expires on its own
				log.Warn("bank cancel failed", zap.Error(err))
			}
			if err := s.payments.UpdatePaymentStatus(ctx, orderNumber, payment.StatusCancelled); err != nil {
				log.Warn("failed to update local payment status", zap.Error(err))
			}
		}
	}

	next := *o
	next.Status = StatusCancelled
	if err := s.repo.UpdateStatus(ctx, orderNumber, o.Status, StatusCancelled, CanonicalPaymentStatus(&next), "cancel_payment"); err != nil {
		return nil, err
	}

	if o.WalletAmountUsed > 0 {
		_, err := s.walletSvc.Credit(ctx, o.CustomerID, o.WalletAmountUsed,
			fmt.Sprintf("Refund for cancelled order %s", orderNumber),
			"order", orderNumber)
		if err != nil {
			log.Error("wallet refund failed", zap.Int64("amount", o.WalletAmountUsed), zap.Error(err))
			return nil, err
		}
		log.Info("wallet refunded", zap.Int64("amount", o.WalletAmountUsed))
	}

	o.Status = StatusCancelled
	o.PaymentStatus = next.PaymentStatus
	return o, nil
}

// PaymentStatus serves the client poll. Pending local payments are refreshed
// against the gateway before answering.
func (s *service) PaymentStatus(ctx context.Context, orderNumber string) (*payment.StatusResult, error) {
	o, err := s.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if o.BankAmountDue == 0 {
		status := payment.StatusCompleted
		if o.Status == StatusCancelled || o.Status == StatusRejected {
			status = payment.StatusCancelled
		}
		return &payment.StatusResult{
			OrderNumber: orderNumber,
			Status:      status,
			Amount:      o.TotalAmount,
			Currency:    o.Currency,
		}, nil
	}

	p, err := s.payments.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if p.Status != payment.StatusPending {
		return &payment.StatusResult{
			OrderNumber: orderNumber,
			Status:      p.Status,
			Amount:      p.Amount,
			Currency:    p.Currency,
		}, nil
	}

	res, err := s.gateway.GetPaymentStatus(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	switch res.Status {
	case payment.StatusCompleted:
		if err := s.MarkBankPaid(ctx, orderNumber); err != nil {
			return nil, err
		}
	case payment.StatusFailed:
		if err := s.MarkBankFailed(ctx, orderNumber); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (s *service) AttachReceipt(ctx context.Context, orderNumber, url string) error {
	if _, err := s.GetOrder(ctx, orderNumber); err != nil {
		return err
	}
	return s.repo.SetReceiptURL(ctx, orderNumber, url)
}
