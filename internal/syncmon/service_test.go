package syncmon

import (
	"context"
	"testing"

	"chemshop-be/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	orders []order.Order
	fixes  []Mismatch
}

func (f *fakeRepo) ListForAudit(context.Context) ([]order.Order, error) {
	return f.orders, nil
}

func (f *fakeRepo) FixPaymentStatus(_ context.Context, orderNumber string, from, to order.PaymentStatus) error {
	f.fixes = append(f.fixes, Mismatch{OrderNumber: orderNumber, PaymentStatus: string(from), Expected: string(to)})
	return nil
}

type fakeOrderRepo struct {
	order.Repository
	moved []string
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, orderNumber string, _, to order.OrderStatus, _ order.PaymentStatus, _ string) error {
	f.moved = append(f.moved, orderNumber+":"+string(to))
	return nil
}

func TestService_Report(t *testing.T) {
	t.Run("CleanTableIsHundredPercent", func(t *testing.T) {
		repo := &fakeRepo{orders: []order.Order{
			{OrderNumber: "MOM2500001", Status: order.StatusFinancial, PaymentStatus: order.PaymentPaid},
			{OrderNumber: "MOM2500002", Status: order.StatusPending, PaymentMethod: order.MethodOnlinePayment, PaymentStatus: order.PaymentUnpaid},
		}}
		svc := NewService(repo, &fakeOrderRepo{})

		rep, err := svc.Report(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, rep.TotalOrders)
		assert.Equal(t, 0, rep.MismatchCount)
		assert.Equal(t, float64(100), rep.SyncPercentage)
	})

	t.Run("EmptyTableIsHundredPercent", func(t *testing.T) {
		svc := NewService(&fakeRepo{}, &fakeOrderRepo{})

		rep, err := svc.Report(context.Background())
		require.NoError(t, err)
		assert.Equal(t, float64(100), rep.SyncPercentage)
	})

	t.Run("DriftIsCountedAndNamed", func(t *testing.T) {
		repo := &fakeRepo{orders: []order.Order{
			// financial means paid, yet the row still says unpaid
			{OrderNumber: "MOM2500003", Status: order.StatusFinancial, PaymentStatus: order.PaymentUnpaid},
			{OrderNumber: "MOM2500004", Status: order.StatusDelivered, PaymentStatus: order.PaymentPaid},
		}}
		svc := NewService(repo, &fakeOrderRepo{})

		rep, err := svc.Report(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, rep.MismatchCount)
		assert.Equal(t, float64(50), rep.SyncPercentage)
		require.Len(t, rep.Mismatches, 1)
		assert.Equal(t, "MOM2500003", rep.Mismatches[0].OrderNumber)
		assert.Equal(t, string(order.PaymentPaid), rep.Mismatches[0].Expected)
	})
}

func TestService_PreventDrift(t *testing.T) {
	t.Run("OverwritesDriftedRows", func(t *testing.T) {
		repo := &fakeRepo{orders: []order.Order{
			{OrderNumber: "MOM2500003", Status: order.StatusFinancial, PaymentStatus: order.PaymentUnpaid},
			{OrderNumber: "MOM2500004", Status: order.StatusInTransit, PaymentStatus: order.PaymentPaid},
		}}
		svc := NewService(repo, &fakeOrderRepo{})

		res, err := svc.PreventDrift(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Corrected)
		require.Len(t, repo.fixes, 1)
		assert.Equal(t, "MOM2500003", repo.fixes[0].OrderNumber)
	})

	t.Run("AutoApprovesPaidWalletOrders", func(t *testing.T) {
		repo := &fakeRepo{orders: []order.Order{
			{
				OrderNumber:      "MOM2500005",
				Status:           order.StatusPending,
				PaymentStatus:    order.PaymentPaid,
				PaymentMethod:    order.MethodWalletFull,
				WalletAmountUsed: 150000,
				BankAmountDue:    0,
			},
			// hybrid still waiting on the bank keeps its place
			{
				OrderNumber:      "MOM2500006",
				Status:           order.StatusPending,
				PaymentStatus:    order.PaymentPartiallyPaid,
				PaymentMethod:    order.MethodWalletPartial,
				WalletAmountUsed: 50000,
				BankAmountDue:    100000,
			},
		}}
		orders := &fakeOrderRepo{}
		svc := NewService(repo, orders)

		res, err := svc.PreventDrift(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.AutoApproved)
		assert.Equal(t, []string{"MOM2500005:financial"}, orders.moved)
		assert.Empty(t, repo.fixes)
	})
}
