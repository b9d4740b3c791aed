package syncmon

import (
	"context"
	"errors"
	"time"

	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"

	"go.uber.org/zap"
)

type Service interface {
	Report(ctx context.Context) (*Report, error)
	PreventDrift(ctx context.Context) (*DriftResult, error)
}

type service struct {
	repo   Repository
	orders order.Repository
	now    func() time.Time
}

func NewService(repo Repository, orders order.Repository) Service {
	return &service{repo: repo, orders: orders, now: time.Now}
}

// Report measures how far the stored payment statuses have drifted from the
// canonical derivation. A clean table reports 100 percent.
func (s *service) Report(ctx context.Context) (*Report, error) {
	orders, err := s.repo.ListForAudit(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		TotalOrders: len(orders),
		CheckedAt:   s.now(),
	}

	for i := range orders {
		o := &orders[i]
		expected := order.CanonicalPaymentStatus(o)
		if expected != o.PaymentStatus {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				OrderNumber:   o.OrderNumber,
				Status:        string(o.Status),
				PaymentStatus: string(o.PaymentStatus),
				Expected:      string(expected),
			})
		}
	}

	rep.MismatchCount = len(rep.Mismatches)
	if rep.TotalOrders == 0 || rep.MismatchCount == 0 {
		rep.SyncPercentage = 100
	} else {
		rep.SyncPercentage = 100 * float64(rep.TotalOrders-rep.MismatchCount) / float64(rep.TotalOrders)
	}

	return rep, nil
}

// PreventDrift overwrites drifted payment statuses with the canonical value
// and pushes fully paid pending orders into financial review.
func (s *service) PreventDrift(ctx context.Context) (*DriftResult, error) {
	log := logger.FromCtx(ctx)

	orders, err := s.repo.ListForAudit(ctx)
	if err != nil {
		return nil, err
	}

	res := &DriftResult{RanAt: s.now()}

	for i := range orders {
		o := &orders[i]

		// a wallet-settled order waiting in pending moves on by itself
		if o.Status == order.StatusPending && o.PaymentStatus == order.PaymentPaid && o.BankAmountDue == 0 {
			err := s.orders.UpdateStatus(ctx, o.OrderNumber,
				order.StatusPending, order.StatusFinancial, order.PaymentPaid, "sync_monitor")
			if err != nil {
				if errors.Is(err, order.ErrOrderNotFound) {
					continue
				}
				return nil, err
			}
			res.AutoApproved++
			continue
		}

		expected := order.CanonicalPaymentStatus(o)
		if expected == o.PaymentStatus {
			continue
		}

		err := s.repo.FixPaymentStatus(ctx, o.OrderNumber, o.PaymentStatus, expected)
		if err != nil {
			if errors.Is(err, order.ErrOrderNotFound) {
				continue
			}
			return nil, err
		}
		res.Corrected++
	}

	if res.Corrected > 0 || res.AutoApproved > 0 {
		log.Info("drift prevention pass finished",
			zap.Int("corrected", res.Corrected),
			zap.Int("auto_approved", res.AutoApproved),
		)
	}

	return res, nil
}

// Worker runs PreventDrift on a fixed interval until the context is done.
type Worker struct {
	svc      Service
	interval time.Duration
}

func NewWorker(svc Service, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Worker{svc: svc, interval: interval}
}

func (w *Worker) Run(ctx context.Context) {
	log := logger.L().With(zap.Duration("interval", w.interval))
	log.Info("sync monitor worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sync monitor worker stopped")
			return
		case <-ticker.C:
			if _, err := w.svc.PreventDrift(ctx); err != nil {
				log.Error("drift prevention pass failed", zap.Error(err))
			}
		}
	}
}
