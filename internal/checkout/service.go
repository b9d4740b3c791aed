package checkout

import (
	"context"
	"errors"
	"fmt"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"
	"chemshop-be/internal/payment"
	"chemshop-be/internal/product"
	"chemshop-be/internal/utils"
	"chemshop-be/internal/wallet"

	"go.uber.org/zap"
)

var (
	ErrOutOfStock   = errors.New("product out of stock")
	ErrNotLoggedIn  = errors.New("customer not authenticated")
	ErrEmptyCart    = errors.New("cart is empty")
	ErrWalletUnused = errors.New("wallet method requested with empty wallet")
)

type Service interface {
	PaymentOptions(ctx context.Context, items []ItemInput, shippingCost int64) (*PaymentOptions, error)
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
}

type service struct {
	repo      Repository
	orders    order.Repository
	products  product.Repository
	walletSvc wallet.Service
	gateway   payment.Gateway
	payments  payment.Repository
	baseURL   string
}

func NewService(
	repo Repository,
	orders order.Repository,
	products product.Repository,
	walletSvc wallet.Service,
	gateway payment.Gateway,
	payments payment.Repository,
	baseURL string,
) Service {
	return &service{
		repo:      repo,
		orders:    orders,
		products:  products,
		walletSvc: walletSvc,
		gateway:   gateway,
		payments:  payments,
		baseURL:   baseURL,
	}
}

// priceItems loads and prices every cart line against the catalog. Prices
// always come from the database, never from the client.
func (s *service) priceItems(ctx context.Context, items []ItemInput) ([]order.Item, int64, error) {
	if len(items) == 0 {
		return nil, 0, ErrEmptyCart
	}

	var lines []order.Item
	var total int64

	for _, in := range items {
		p, err := s.products.GetForCheckout(ctx, in.ProductID)
		if err != nil {
			return nil, 0, err
		}

		ok, err := s.products.HasStock(ctx, in.ProductID, in.Quantity)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrOutOfStock, p.Name)
		}

		lineTotal := p.UnitPrice * int64(in.Quantity)
		lines = append(lines, order.Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			Unit:        p.Unit,
			UnitPrice:   p.UnitPrice,
			LineTotal:   lineTotal,
		})
		total += lineTotal
	}

	return lines, total, nil
}

func (s *service) PaymentOptions(ctx context.Context, items []ItemInput, shippingCost int64) (*PaymentOptions, error) {
	customerID, ok := utils.GetCustomerIDFromContext(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}

	_, total, err := s.priceItems(ctx, items)
	if err != nil {
		return nil, err
	}
	total += shippingCost

	balance, err := s.walletSvc.Balance(ctx, customerID)
	if err != nil {
		return nil, err
	}

	opts := &PaymentOptions{
		TotalAmount:   total,
		Currency:      "IQD",
		WalletBalance: balance,
	}

	opts.Options = append(opts.Options,
		PaymentOption{Method: string(order.MethodOnlinePayment), BankAmount: total},
		PaymentOption{Method: string(order.MethodBankReceipt), BankAmount: total, GracePeriod: bankReceiptGraceDays},
	)

	switch {
	case balance >= total:
		opts.Options = append(opts.Options, PaymentOption{
			Method:       string(order.MethodWalletFull),
			WalletAmount: total,
		})
	case balance > 0:
		opts.Options = append(opts.Options, PaymentOption{
			Method:       string(order.MethodWalletPartial),
			WalletAmount: balance,
			BankAmount:   total - balance,
		})
	}

	return opts, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	customerID, ok := utils.GetCustomerIDFromContext(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}

	log := logger.FromCtx(ctx).With(zap.Int64("customer_id", customerID))

	if input.IdempotencyKey != "" {
		res, err := s.replay(ctx, customerID, input.IdempotencyKey)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNoSubmission) {
			return nil, err
		}
	}

	lines, total, err := s.priceItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	total += input.ShippingCost

	balance, err := s.walletSvc.Balance(ctx, customerID)
	if err != nil {
		return nil, err
	}

	method, walletUsed, bankDue, err := splitPayment(order.PaymentMethod(input.PaymentMethod), total, balance)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		CustomerID:       customerID,
		TotalAmount:      total,
		Currency:         "IQD",
		PaymentMethod:    method,
		WalletAmountUsed: walletUsed,
		BankAmountDue:    bankDue,
		Status:           order.StatusPending,
		ShippingAddress:  input.ShippingAddress,
		Items:            lines,
	}
	o.PaymentStatus = order.CanonicalPaymentStatus(o)

	if err := s.repo.CreateOrder(ctx, o, input.IdempotencyKey); err != nil {
		// a concurrent request with the same key won the insert race: the
		// unique index rejected this one, so serve the winner's order
		if errors.Is(err, ErrDuplicateSubmission) && input.IdempotencyKey != "" {
			return s.replay(ctx, customerID, input.IdempotencyKey)
		}
		return nil, err
	}

	res := &SubmitResult{Order: o}

	if bankDue > 0 && method != order.MethodBankReceipt {
		redirect, err := s.registerBankPayment(ctx, o, input.CallbackURL)
		if err != nil {
			// the order is already committed; undo the wallet debit and
			// park the order in payment_failed for a retry
			if compErr := s.compensate(ctx, o); compErr != nil {
				log.Error("compensation after failed bank registration failed",
					zap.String("order_number", o.OrderNumber), zap.Error(compErr))
			}
			return nil, fmt.Errorf("bank registration failed for %s: %w", o.OrderNumber, err)
		}
		res.RedirectURL = redirect
	}

	return res, nil
}

// replay serves a previously committed submission for the same key.
func (s *service) replay(ctx context.Context, customerID int64, key string) (*SubmitResult, error) {
	existing, err := s.repo.FindByIdempotencyKey(ctx, customerID, key)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("checkout replayed",
		zap.Int64("customer_id", customerID),
		zap.String("order_number", existing.OrderNumber),
	)

	res := &SubmitResult{Order: existing, Replayed: true}
	if existing.BankAmountDue > 0 {
		if p, pErr := s.payments.GetByOrderNumber(ctx, existing.OrderNumber); pErr == nil {
			res.RedirectURL = p.RedirectURL
		}
	}
	return res, nil
}

// splitPayment resolves the requested method against the live wallet balance.
// The invariant walletUsed + bankDue == total holds for every branch.
func splitPayment(requested order.PaymentMethod, total, balance int64) (order.PaymentMethod, int64, int64, error) {
	switch requested {
	case order.MethodWalletFull:
		if balance < total {
			return "", 0, 0, wallet.ErrInsufficientFunds
		}
		return order.MethodWalletFull, total, 0, nil

	case order.MethodWalletPartial:
		if balance <= 0 {
			return "", 0, 0, ErrWalletUnused
		}
		if balance >= total {
			// the wallet grew since the options were shown, take it all
			return order.MethodWalletFull, total, 0, nil
		}
		return order.MethodWalletPartial, balance, total - balance, nil

	case order.MethodBankReceipt:
		return order.MethodBankReceipt, 0, total, nil

	default:
		return order.MethodOnlinePayment, 0, total, nil
	}
}

func (s *service) registerBankPayment(ctx context.Context, o *order.Order, callbackURL string) (string, error) {
	if callbackURL == "" {
		callbackURL = s.baseURL + "/api/payment/callback"
	}

	items := make([]payment.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, payment.OrderItem{
			Name:     it.ProductName,
			Quantity: it.Quantity,
			Price:    it.UnitPrice,
			Total:    it.LineTotal,
		})
	}

	resp, err := s.gateway.RegisterPayment(ctx, payment.RegisterRequest{
		CustomerName:  o.ShippingAddress.Recipient,
		CustomerPhone: o.ShippingAddress.Phone,
		OrderNumber:   o.OrderNumber,
		Items:         items,
		TotalAmount:   o.BankAmountDue,
		Currency:      o.Currency,
		CallbackURL:   callbackURL,
		StatusURL:     s.baseURL + "/api/payment/status/" + o.OrderNumber,
	})
	if err != nil {
		return "", err
	}

	p := &payment.Payment{
		OrderNumber:         o.OrderNumber,
		CreditApplicationID: resp.CreditApplicationID,
		RedirectURL:         resp.RedirectURL,
		Amount:              o.BankAmountDue,
		Currency:            o.Currency,
		Status:              payment.StatusPending,
	}
	if err := s.payments.SavePayment(ctx, p); err != nil {
		return "", err
	}

	return resp.RedirectURL, nil
}

func (s *service) compensate(ctx context.Context, o *order.Order) error {
	if err := s.orders.UpdateStatus(ctx, o.OrderNumber,
		order.StatusPending, order.StatusPaymentFailed, order.PaymentFailed, "checkout"); err != nil {
		return err
	}

	if o.WalletAmountUsed > 0 {
		_, err := s.walletSvc.Credit(ctx, o.CustomerID, o.WalletAmountUsed,
			fmt.Sprintf("Refund for failed payment on order %s", o.OrderNumber),
			"order", o.OrderNumber)
		return err
	}
	return nil
}
