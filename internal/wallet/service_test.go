package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps balances in memory so service-level behaviour can be tested
// without SQL plumbing.
type fakeRepo struct {
	Repository
	balances  map[int64]int64
	limits    map[int64]int64
	txns      []Transaction
	recharges map[int64]*RechargeRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		balances:  map[int64]int64{},
		limits:    map[int64]int64{},
		recharges: map[int64]*RechargeRequest{},
	}
}

func (f *fakeRepo) GetByCustomerID(_ context.Context, customerID int64) (*Wallet, error) {
	b, ok := f.balances[customerID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &Wallet{CustomerID: customerID, Balance: b, CreditLimit: f.limits[customerID]}, nil
}

func (f *fakeRepo) Credit(_ context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	before := f.balances[customerID]
	f.balances[customerID] = before + amount
	txn := Transaction{CustomerID: customerID, Type: TransactionCredit, Amount: amount,
		BalanceBefore: before, BalanceAfter: before + amount, ReferenceID: refID}
	f.txns = append(f.txns, txn)
	return &txn, nil
}

func (f *fakeRepo) Debit(_ context.Context, customerID, amount int64, description, refType, refID string) (*Transaction, error) {
	before, ok := f.balances[customerID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	if amount > before+f.limits[customerID] {
		return nil, ErrInsufficientFunds
	}
	f.balances[customerID] = before - amount
	txn := Transaction{CustomerID: customerID, Type: TransactionDebit, Amount: amount,
		BalanceBefore: before, BalanceAfter: before - amount, ReferenceID: refID}
	f.txns = append(f.txns, txn)
	return &txn, nil
}

func (f *fakeRepo) GetRechargeRequest(_ context.Context, id int64) (*RechargeRequest, error) {
	req, ok := f.recharges[id]
	if !ok {
		return nil, ErrRechargeNotFound
	}
	return req, nil
}

func (f *fakeRepo) UpdateRechargeStatus(_ context.Context, id int64, status RechargeStatus, notes string, approvedBy int64) error {
	req, ok := f.recharges[id]
	if !ok {
		return ErrRechargeNotFound
	}
	if req.Status != RechargeStatusPending {
		return ErrRechargeNotPending
	}
	req.Status = status
	return nil
}

func TestService_DebitCreditRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 75000
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Debit(ctx, 1, 50000, "order payment", "order", "MOM2500010")
	require.NoError(t, err)

	_, err = svc.Credit(ctx, 1, 50000, "order cancelled", "order", "MOM2500010")
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(75000), balance)
}

func TestService_RejectsNonPositiveAmounts(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Debit(ctx, 1, 0, "x", "order", "MOM2500011")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Credit(ctx, 1, -5, "x", "order", "MOM2500011")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestService_BalanceWithoutWallet(t *testing.T) {
	svc := NewService(newFakeRepo())

	balance, err := svc.Balance(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestService_ApproveRecharge(t *testing.T) {
	repo := newFakeRepo()
	repo.recharges[5] = &RechargeRequest{
		ID: 5, RequestNumber: "WR100", CustomerID: 3, Amount: 25000,
		Status: RechargeStatusPending,
	}
	svc := NewService(repo)

	txn, err := svc.ApproveRecharge(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), txn.Amount)
	assert.Equal(t, int64(25000), repo.balances[3])

	// second approval must not credit again
	_, err = svc.ApproveRecharge(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrRechargeNotPending)
}
