package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chemshop-be/internal/customer"
	"chemshop-be/internal/payment"
	"chemshop-be/internal/utils"
	"chemshop-be/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	orders map[string]*Order
	log    []string
}

func newFakeOrderRepo(orders ...*Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[string]*Order{}}
	for _, o := range orders {
		r.orders[o.OrderNumber] = o
	}
	return r
}

func (r *fakeOrderRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*Order, error) {
	o, ok := r.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListByStatuses(context.Context, []OrderStatus, int32, int32) ([]Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) ListByCustomer(context.Context, int64, int32, int32) ([]Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, orderNumber string, from, to OrderStatus, paymentStatus PaymentStatus, changedBy string) error {
	o, ok := r.orders[orderNumber]
	if !ok || o.Status != from {
		return ErrOrderNotFound
	}
	o.Status = to
	o.PaymentStatus = paymentStatus
	r.log = append(r.log, string(from)+"->"+string(to)+" by "+changedBy)
	return nil
}

func (r *fakeOrderRepo) SetReceiptURL(_ context.Context, orderNumber, url string) error {
	o, ok := r.orders[orderNumber]
	if !ok {
		return ErrOrderNotFound
	}
	o.ReceiptURL = &url
	return nil
}

type fakeWalletSvc struct {
	wallet.Service
	credits []int64
	fail    bool
}

func (f *fakeWalletSvc) Credit(_ context.Context, _, amount int64, _, _, _ string) (*wallet.Transaction, error) {
	if f.fail {
		return nil, errors.New("wallet unavailable")
	}
	f.credits = append(f.credits, amount)
	return &wallet.Transaction{Amount: amount, Type: wallet.TransactionCredit}, nil
}

type fakeGateway struct {
	cancelled []string
	status    payment.Status
	cancelErr error
}

func (f *fakeGateway) RegisterPayment(context.Context, payment.RegisterRequest) (*payment.RegisterResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) GetPaymentStatus(_ context.Context, orderNumber string) (*payment.StatusResult, error) {
	return &payment.StatusResult{OrderNumber: orderNumber, Status: f.status}, nil
}

func (f *fakeGateway) CancelPayment(_ context.Context, orderNumber string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderNumber)
	return nil
}

func (f *fakeGateway) RefundPayment(context.Context, string, int64) error { return nil }

type fakePaymentRepo struct {
	payments map[string]*payment.Payment
}

func (f *fakePaymentRepo) SavePayment(_ context.Context, p *payment.Payment) error {
	f.payments[p.OrderNumber] = p
	return nil
}

func (f *fakePaymentRepo) UpdatePaymentStatus(_ context.Context, orderNumber string, status payment.Status) error {
	p, ok := f.payments[orderNumber]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePaymentRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*payment.Payment, error) {
	p, ok := f.payments[orderNumber]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) SaveCallback(context.Context, string, string, json.RawMessage) (int64, bool, error) {
	return 0, false, nil
}

func (f *fakePaymentRepo) MarkCallbackProcessed(context.Context, int64) error { return nil }

func (f *fakePaymentRepo) MarkCallbackFailed(context.Context, int64, string) error { return nil }

func customerCtx(customerID int64) context.Context {
	return utils.SetCustomerContext(context.Background(), customerID, "customer@example.com", "customer")
}

func hybridOrder() *Order {
	return &Order{
		ID:               1,
		OrderNumber:      "MOM2500010",
		CustomerID:       42,
		TotalAmount:      150000,
		Currency:         "IQD",
		PaymentMethod:    MethodWalletPartial,
		WalletAmountUsed: 50000,
		BankAmountDue:    100000,
		Status:           StatusPending,
		PaymentStatus:    PaymentPartiallyPaid,
	}
}

func TestService_GetOrder(t *testing.T) {
	repo := newFakeOrderRepo(hybridOrder())
	svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

	t.Run("OwnerSeesOwnOrder", func(t *testing.T) {
		o, err := svc.GetOrder(customerCtx(42), "MOM2500010")
		require.NoError(t, err)
		assert.Equal(t, int64(42), o.CustomerID)
	})

	t.Run("AdminSeesAnyOrder", func(t *testing.T) {
		ctx := utils.SetCustomerContext(context.Background(), 1, "admin@example.com", customer.RoleAdmin)
		o, err := svc.GetOrder(ctx, "MOM2500010")
		require.NoError(t, err)
		assert.Equal(t, int64(42), o.CustomerID)
	})

	t.Run("OtherCustomerForbidden", func(t *testing.T) {
		_, err := svc.GetOrder(customerCtx(7), "MOM2500010")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestService_CancelPayment(t *testing.T) {
	t.Run("RefundsExactlyWalletPortion", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		ws := &fakeWalletSvc{}
		gw := &fakeGateway{}
		pr := &fakePaymentRepo{payments: map[string]*payment.Payment{
			"MOM2500010": {OrderNumber: "MOM2500010", Amount: 100000, Status: payment.StatusPending},
		}}

		svc := NewService(repo, ws, gw, pr)

		o, err := svc.CancelPayment(customerCtx(42), "MOM2500010")
		require.NoError(t, err)

		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, PaymentRefunded, o.PaymentStatus)
		// only the wallet portion comes back, never the bank portion
		assert.Equal(t, []int64{50000}, ws.credits)
		assert.Equal(t, []string{"MOM2500010"}, gw.cancelled)
		assert.Equal(t, payment.StatusCancelled, pr.payments["MOM2500010"].Status)
	})

	t.Run("BankCancelFailureStillCancelsLocally", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		ws := &fakeWalletSvc{}
		gw := &fakeGateway{cancelErr: errors.New("gateway timeout")}
		pr := &fakePaymentRepo{payments: map[string]*payment.Payment{
			"MOM2500010": {OrderNumber: "MOM2500010", Status: payment.StatusPending},
		}}

		svc := NewService(repo, ws, gw, pr)

		o, err := svc.CancelPayment(customerCtx(42), "MOM2500010")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, []int64{50000}, ws.credits)
	})

	t.Run("ForbiddenForOtherCustomer", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		_, err := svc.CancelPayment(customerCtx(7), "MOM2500010")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("DeliveredIsNotCancelable", func(t *testing.T) {
		o := hybridOrder()
		o.Status = StatusDelivered
		repo := newFakeOrderRepo(o)
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		_, err := svc.CancelPayment(customerCtx(42), "MOM2500010")
		assert.ErrorIs(t, err, ErrOrderNotCancelable)
	})
}

func TestService_MarkBankPaid(t *testing.T) {
	t.Run("MovesPendingToFinancial", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		pr := &fakePaymentRepo{payments: map[string]*payment.Payment{
			"MOM2500010": {OrderNumber: "MOM2500010", Status: payment.StatusPending},
		}}
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, pr)

		require.NoError(t, svc.MarkBankPaid(context.Background(), "MOM2500010"))

		o := repo.orders["MOM2500010"]
		assert.Equal(t, StatusFinancial, o.Status)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.Equal(t, payment.StatusCompleted, pr.payments["MOM2500010"].Status)
	})

	t.Run("ReplayAfterAdvanceIsNoop", func(t *testing.T) {
		o := hybridOrder()
		o.Status = StatusWarehousePending
		o.PaymentStatus = PaymentPaid
		repo := newFakeOrderRepo(o)
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		require.NoError(t, svc.MarkBankPaid(context.Background(), "MOM2500010"))
		assert.Equal(t, StatusWarehousePending, repo.orders["MOM2500010"].Status)
		assert.Empty(t, repo.log)
	})
}

func TestService_MarkBankFailed(t *testing.T) {
	t.Run("CompensatesWalletDebit", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		ws := &fakeWalletSvc{}
		pr := &fakePaymentRepo{payments: map[string]*payment.Payment{
			"MOM2500010": {OrderNumber: "MOM2500010", Status: payment.StatusPending},
		}}
		svc := NewService(repo, ws, &fakeGateway{}, pr)

		require.NoError(t, svc.MarkBankFailed(context.Background(), "MOM2500010"))

		o := repo.orders["MOM2500010"]
		assert.Equal(t, StatusPaymentFailed, o.Status)
		assert.Equal(t, PaymentFailed, o.PaymentStatus)
		assert.Equal(t, []int64{50000}, ws.credits)
	})

	t.Run("AlreadyFailedIsIdempotent", func(t *testing.T) {
		o := hybridOrder()
		o.Status = StatusPaymentFailed
		repo := newFakeOrderRepo(o)
		ws := &fakeWalletSvc{}
		svc := NewService(repo, ws, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		require.NoError(t, svc.MarkBankFailed(context.Background(), "MOM2500010"))
		// no second refund on replay
		assert.Empty(t, ws.credits)
	})

	t.Run("NoWalletPortionNoCredit", func(t *testing.T) {
		o := hybridOrder()
		o.PaymentMethod = MethodOnlinePayment
		o.WalletAmountUsed = 0
		o.BankAmountDue = o.TotalAmount
		repo := newFakeOrderRepo(o)
		ws := &fakeWalletSvc{}
		svc := NewService(repo, ws, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		require.NoError(t, svc.MarkBankFailed(context.Background(), "MOM2500010"))
		assert.Empty(t, ws.credits)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	t.Run("RejectsInvalidTransition", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		err := svc.UpdateStatus(context.Background(), "MOM2500010", StatusDelivered, "admin@example.com")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StatusPending, repo.orders["MOM2500010"].Status)
	})

	t.Run("AllowedTransitionWritesLog", func(t *testing.T) {
		o := hybridOrder()
		o.Status = StatusFinancial
		o.PaymentStatus = PaymentPaid
		repo := newFakeOrderRepo(o)
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		require.NoError(t, svc.UpdateStatus(context.Background(), "MOM2500010", StatusWarehousePending, "finance@example.com"))
		assert.Equal(t, StatusWarehousePending, repo.orders["MOM2500010"].Status)
		require.Len(t, repo.log, 1)
		assert.Contains(t, repo.log[0], "finance@example.com")
	})
}

func TestService_PaymentStatus(t *testing.T) {
	t.Run("PollUpgradesPendingToPaid", func(t *testing.T) {
		repo := newFakeOrderRepo(hybridOrder())
		pr := &fakePaymentRepo{payments: map[string]*payment.Payment{
			"MOM2500010": {OrderNumber: "MOM2500010", Status: payment.StatusPending},
		}}
		gw := &fakeGateway{status: payment.StatusCompleted}
		svc := NewService(repo, &fakeWalletSvc{}, gw, pr)

		res, err := svc.PaymentStatus(customerCtx(42), "MOM2500010")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, res.Status)
		assert.Equal(t, StatusFinancial, repo.orders["MOM2500010"].Status)
	})

	t.Run("WalletOnlyOrderIsCompleted", func(t *testing.T) {
		o := hybridOrder()
		o.PaymentMethod = MethodWalletFull
		o.WalletAmountUsed = o.TotalAmount
		o.BankAmountDue = 0
		repo := newFakeOrderRepo(o)
		svc := NewService(repo, &fakeWalletSvc{}, &fakeGateway{}, &fakePaymentRepo{payments: map[string]*payment.Payment{}})

		res, err := svc.PaymentStatus(customerCtx(42), "MOM2500010")
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, res.Status)
		assert.Equal(t, int64(150000), res.Amount)
	})
}
