package abandoned

import (
	"context"
	"strconv"
	"time"

	"chemshop-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamName is the Redis stream marketing consumes for follow-up campaigns.
const StreamName = "abandoned-checkouts"

// Dispatcher drains the outbox: undelivered rows are published to the Redis
// stream and marked delivered. A crash between publish and mark re-delivers
// the event, so consumers must dedupe on order number.
type Dispatcher struct {
	repo     Repository
	rdb      *redis.Client
	interval time.Duration
	batch    int
}

func NewDispatcher(repo Repository, rdb *redis.Client, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Dispatcher{repo: repo, rdb: rdb, interval: interval, batch: 100}
}

func (d *Dispatcher) Run(ctx context.Context) {
	log := logger.L().With(zap.String("stream", StreamName))
	log.Info("abandonment dispatcher started", zap.Duration("interval", d.interval))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("abandonment dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.Dispatch(ctx); err != nil {
				log.Error("outbox dispatch failed", zap.Error(err))
			}
		}
	}
}

// Dispatch publishes one batch of undelivered rows.
func (d *Dispatcher) Dispatch(ctx context.Context) error {
	rows, err := d.repo.ListUndelivered(ctx, d.batch)
	if err != nil {
		return err
	}

	for i := range rows {
		c := &rows[i]

		err := d.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamName,
			Values: map[string]any{
				"order_number":   c.OrderNumber,
				"customer_id":    strconv.FormatInt(c.CustomerID, 10),
				"customer_email": c.CustomerEmail,
				"total_amount":   strconv.FormatInt(c.TotalAmount, 10),
				"wallet_amount":  strconv.FormatInt(c.WalletAmount, 10),
				"bank_amount":    strconv.FormatInt(c.BankAmount, 10),
				"currency":       c.Currency,
				"reason":         c.Reason,
				"abandoned_at":   c.CreatedAt.UTC().Format(time.RFC3339),
			},
		}).Err()
		if err != nil {
			// leave the row undelivered, the next tick retries
			return err
		}

		if err := d.repo.MarkDelivered(ctx, c.ID); err != nil {
			return err
		}

		logger.FromCtx(ctx).Info("abandoned checkout published",
			zap.String("order_number", c.OrderNumber),
		)
	}

	return nil
}
