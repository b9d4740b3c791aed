package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"chemshop-be/internal/order"
	"chemshop-be/internal/payment"
	"chemshop-be/internal/product"
	"chemshop-be/internal/utils"
	"chemshop-be/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckoutRepo struct {
	created   []*order.Order
	byKey     map[string]*order.Order
	nextNum   int64
	createErr error
	// findMisses makes the first N key lookups miss, as if a concurrent
	// submission had not committed yet when this one checked
	findMisses int
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{byKey: map[string]*order.Order{}, nextNum: 1}
}

func (f *fakeCheckoutRepo) CreateOrder(_ context.Context, o *order.Order, key string) error {
	if f.createErr != nil {
		return f.createErr
	}
	o.ID = f.nextNum
	o.OrderNumber = order.FormatOrderNumber(testTime(), f.nextNum)
	f.nextNum++
	f.created = append(f.created, o)
	if key != "" {
		f.byKey[key] = o
	}
	return nil
}

func (f *fakeCheckoutRepo) FindByIdempotencyKey(_ context.Context, _ int64, key string) (*order.Order, error) {
	if f.findMisses > 0 {
		f.findMisses--
		return nil, ErrNoSubmission
	}
	if o, ok := f.byKey[key]; ok {
		return o, nil
	}
	return nil, ErrNoSubmission
}

type fakeOrderRepo struct {
	order.Repository
	statusUpdates []string
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, orderNumber string, from, to order.OrderStatus, _ order.PaymentStatus, _ string) error {
	f.statusUpdates = append(f.statusUpdates, orderNumber+":"+string(to))
	return nil
}

type fakeProductRepo struct {
	products map[int64]*product.Product
	noStock  map[int64]bool
}

func (f *fakeProductRepo) GetForCheckout(_ context.Context, id int64) (*product.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) HasStock(_ context.Context, id int64, _ int) (bool, error) {
	return !f.noStock[id], nil
}

type fakeWalletSvc struct {
	wallet.Service
	balance int64
	credits []int64
}

func (f *fakeWalletSvc) Balance(context.Context, int64) (int64, error) {
	return f.balance, nil
}

func (f *fakeWalletSvc) Credit(_ context.Context, _, amount int64, _, _, _ string) (*wallet.Transaction, error) {
	f.credits = append(f.credits, amount)
	return &wallet.Transaction{Amount: amount}, nil
}

type fakeGateway struct {
	payment.Gateway
	requests    []payment.RegisterRequest
	registerErr error
}

func (f *fakeGateway) RegisterPayment(_ context.Context, req payment.RegisterRequest) (*payment.RegisterResponse, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.requests = append(f.requests, req)
	return &payment.RegisterResponse{
		CreditApplicationID: "CA-1",
		OrderNumber:         req.OrderNumber,
		RedirectURL:         "https://bank.example.com/pay/CA-1",
	}, nil
}

type fakePaymentRepo struct {
	payment.Repository
	saved []*payment.Payment
}

func (f *fakePaymentRepo) SavePayment(_ context.Context, p *payment.Payment) error {
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakePaymentRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*payment.Payment, error) {
	for _, p := range f.saved {
		if p.OrderNumber == orderNumber {
			return p, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

type env struct {
	repo     *fakeCheckoutRepo
	orders   *fakeOrderRepo
	products *fakeProductRepo
	walletS  *fakeWalletSvc
	gateway  *fakeGateway
	payments *fakePaymentRepo
	svc      Service
}

func newEnv(balance int64) *env {
	e := &env{
		repo:   newFakeCheckoutRepo(),
		orders: &fakeOrderRepo{},
		products: &fakeProductRepo{products: map[int64]*product.Product{
			1: {ID: 1, Name: "Caustic Soda 25kg", UnitPrice: 75000, Unit: "bag", Stock: 10},
			2: {ID: 2, Name: "Citric Acid 1kg", UnitPrice: 15000, Unit: "kg", Stock: 100},
		}, noStock: map[int64]bool{}},
		walletS:  &fakeWalletSvc{balance: balance},
		gateway:  &fakeGateway{},
		payments: &fakePaymentRepo{},
	}
	e.svc = NewService(e.repo, e.orders, e.products, e.walletS, e.gateway, e.payments, "https://shop.example.com")
	return e
}

func authedCtx() context.Context {
	return utils.SetCustomerContext(context.Background(), 42, "c@example.com", "customer")
}

func cart() []ItemInput {
	// 2 x 75000 = 150000
	return []ItemInput{{ProductID: 1, Quantity: 2}}
}

func TestSplitPayment(t *testing.T) {
	tests := []struct {
		name       string
		requested  order.PaymentMethod
		total      int64
		balance    int64
		wantMethod order.PaymentMethod
		wantWallet int64
		wantBank   int64
		wantErr    error
	}{
		{"hybrid split", order.MethodWalletPartial, 150000, 50000, order.MethodWalletPartial, 50000, 100000, nil},
		{"hybrid upgraded to full", order.MethodWalletPartial, 150000, 200000, order.MethodWalletFull, 150000, 0, nil},
		{"hybrid exact balance upgrades", order.MethodWalletPartial, 150000, 150000, order.MethodWalletFull, 150000, 0, nil},
		{"hybrid with empty wallet", order.MethodWalletPartial, 150000, 0, "", 0, 0, ErrWalletUnused},
		{"wallet full covered", order.MethodWalletFull, 150000, 150000, order.MethodWalletFull, 150000, 0, nil},
		{"wallet full short", order.MethodWalletFull, 150000, 149999, "", 0, 0, wallet.ErrInsufficientFunds},
		{"online ignores balance", order.MethodOnlinePayment, 150000, 999999, order.MethodOnlinePayment, 0, 150000, nil},
		{"bank receipt", order.MethodBankReceipt, 150000, 50000, order.MethodBankReceipt, 0, 150000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, walletUsed, bankDue, err := splitPayment(tt.requested, tt.total, tt.balance)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantWallet, walletUsed)
			assert.Equal(t, tt.wantBank, bankDue)
			// the money invariant
			assert.Equal(t, tt.total, walletUsed+bankDue)
		})
	}
}

func TestService_PaymentOptions(t *testing.T) {
	t.Run("PartialWalletOffersHybrid", func(t *testing.T) {
		e := newEnv(50000)

		opts, err := e.svc.PaymentOptions(authedCtx(), cart(), 0)
		require.NoError(t, err)

		assert.Equal(t, int64(150000), opts.TotalAmount)
		assert.Equal(t, int64(50000), opts.WalletBalance)

		methods := map[string]PaymentOption{}
		for _, o := range opts.Options {
			methods[o.Method] = o
		}
		require.Contains(t, methods, "wallet_partial")
		assert.Equal(t, int64(50000), methods["wallet_partial"].WalletAmount)
		assert.Equal(t, int64(100000), methods["wallet_partial"].BankAmount)
		assert.NotContains(t, methods, "wallet_full")
		assert.Equal(t, bankReceiptGraceDays, methods["bank_receipt"].GracePeriod)
	})

	t.Run("FullBalanceOffersWalletFull", func(t *testing.T) {
		e := newEnv(200000)

		opts, err := e.svc.PaymentOptions(authedCtx(), cart(), 0)
		require.NoError(t, err)

		var hasFull, hasPartial bool
		for _, o := range opts.Options {
			hasFull = hasFull || o.Method == "wallet_full"
			hasPartial = hasPartial || o.Method == "wallet_partial"
		}
		assert.True(t, hasFull)
		assert.False(t, hasPartial)
	})

	t.Run("ShippingCostIncluded", func(t *testing.T) {
		e := newEnv(0)

		opts, err := e.svc.PaymentOptions(authedCtx(), cart(), 5000)
		require.NoError(t, err)
		assert.Equal(t, int64(155000), opts.TotalAmount)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		e := newEnv(0)
		_, err := e.svc.PaymentOptions(context.Background(), cart(), 0)
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})
}

func TestService_Submit(t *testing.T) {
	t.Run("HybridRegistersBankPortionOnly", func(t *testing.T) {
		e := newEnv(50000)

		res, err := e.svc.Submit(authedCtx(), SubmitInput{
			PaymentMethod:   "wallet_partial",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		})
		require.NoError(t, err)

		o := res.Order
		assert.Equal(t, order.MethodWalletPartial, o.PaymentMethod)
		assert.Equal(t, int64(50000), o.WalletAmountUsed)
		assert.Equal(t, int64(100000), o.BankAmountDue)
		assert.Equal(t, order.PaymentPartiallyPaid, o.PaymentStatus)

		require.Len(t, e.gateway.requests, 1)
		assert.Equal(t, int64(100000), e.gateway.requests[0].TotalAmount)
		assert.Equal(t, "https://bank.example.com/pay/CA-1", res.RedirectURL)

		require.Len(t, e.payments.saved, 1)
		assert.Equal(t, payment.StatusPending, e.payments.saved[0].Status)
	})

	t.Run("WalletFullSkipsGateway", func(t *testing.T) {
		e := newEnv(200000)

		res, err := e.svc.Submit(authedCtx(), SubmitInput{
			PaymentMethod:   "wallet_full",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		})
		require.NoError(t, err)

		assert.Equal(t, order.PaymentPaid, res.Order.PaymentStatus)
		assert.Empty(t, e.gateway.requests)
		assert.Empty(t, res.RedirectURL)
	})

	t.Run("BankReceiptSkipsGateway", func(t *testing.T) {
		e := newEnv(0)

		res, err := e.svc.Submit(authedCtx(), SubmitInput{
			PaymentMethod:   "bank_receipt",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		})
		require.NoError(t, err)

		assert.Equal(t, order.MethodBankReceipt, res.Order.PaymentMethod)
		assert.Equal(t, order.PaymentUnpaid, res.Order.PaymentStatus)
		assert.Empty(t, e.gateway.requests)
	})

	t.Run("RegistrationFailureCompensatesWallet", func(t *testing.T) {
		e := newEnv(50000)
		e.gateway.registerErr = errors.New("gateway down")

		_, err := e.svc.Submit(authedCtx(), SubmitInput{
			PaymentMethod:   "wallet_partial",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		})
		require.Error(t, err)

		// wallet debit undone, order parked in payment_failed
		assert.Equal(t, []int64{50000}, e.walletS.credits)
		require.Len(t, e.orders.statusUpdates, 1)
		assert.Contains(t, e.orders.statusUpdates[0], string(order.StatusPaymentFailed))
	})

	t.Run("IdempotentReplayReturnsSameOrder", func(t *testing.T) {
		e := newEnv(50000)

		input := SubmitInput{
			IdempotencyKey:  "key-1",
			PaymentMethod:   "wallet_partial",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		}

		first, err := e.svc.Submit(authedCtx(), input)
		require.NoError(t, err)

		second, err := e.svc.Submit(authedCtx(), input)
		require.NoError(t, err)

		assert.True(t, second.Replayed)
		assert.Equal(t, first.Order.OrderNumber, second.Order.OrderNumber)
		assert.Equal(t, first.RedirectURL, second.RedirectURL)
		assert.Len(t, e.repo.created, 1)
		assert.Len(t, e.gateway.requests, 1)
	})

	t.Run("ConcurrentSubmissionReplaysWinner", func(t *testing.T) {
		e := newEnv(50000)

		// the other request committed between this one's key lookup and its
		// insert, so the unique index rejects the insert
		winner := &order.Order{
			OrderNumber:      "MOM2500007",
			CustomerID:       42,
			TotalAmount:      150000,
			WalletAmountUsed: 50000,
			BankAmountDue:    100000,
		}
		e.repo.byKey["key-race"] = winner
		e.repo.findMisses = 1
		e.repo.createErr = ErrDuplicateSubmission

		res, err := e.svc.Submit(authedCtx(), SubmitInput{
			IdempotencyKey:  "key-race",
			PaymentMethod:   "wallet_partial",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		})
		require.NoError(t, err)

		assert.True(t, res.Replayed)
		assert.Equal(t, "MOM2500007", res.Order.OrderNumber)
		assert.Empty(t, e.repo.created)
		assert.Empty(t, e.gateway.requests)
		assert.Empty(t, e.walletS.credits)
	})

	t.Run("OutOfStock", func(t *testing.T) {
		e := newEnv(50000)
		e.products.noStock[1] = true

		_, err := e.svc.Submit(authedCtx(), SubmitInput{
			PaymentMethod:   "online_payment",
			Items:           cart(),
			ShippingAddress: order.Address{Recipient: "Ali", Phone: "0770", City: "Baghdad", Line: "Main St"},
		})
		assert.ErrorIs(t, err, ErrOutOfStock)
	})
}
