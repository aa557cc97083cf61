package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/metrics"
	"github.com/warlaundry/washerman/internal/workerpool"
)

// bulkUpdateTimeout bounds a single update once a worker picks it up.
const bulkUpdateTimeout = 30 * time.Second

type Transitioner struct {
	orders  OrderService
	pool    *workerpool.Pool
	metrics metrics.MetricsProvider
	log     *zap.Logger
}

func NewTransitioner(orders OrderService, pool *workerpool.Pool, m metrics.MetricsProvider, log *zap.Logger) *Transitioner {
	if m == nil {
		m = metrics.NewNoOpProvider()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transitioner{orders: orders, pool: pool, metrics: m, log: log}
}

// Transition asks the service to move the order and then reloads the listing.
// Nothing local changes until the refetch brings the confirmed status back.
func (t *Transitioner) Transition(ctx context.Context, orderID int64, target domain.OrderStatus, refetch Refetcher) error {
	if err := t.update(ctx, orderID, target); err != nil {
		return err
	}
	if refetch != nil {
		refetch(ctx)
	}
	return nil
}

func (t *Transitioner) Advance(ctx context.Context, order domain.Order, refetch Refetcher) error {
	next, ok := order.Status.Next()
	if !ok {
		return TransitionError(order.ID, domain.TransitionNotAllowedError(order.Status))
	}
	return t.Transition(ctx, order.ID, next, refetch)
}

// AdvanceMany moves every order one step forward through the worker pool and refetches once.
func (t *Transitioner) AdvanceMany(ctx context.Context, orders []domain.Order, refetch Refetcher) error {
	var combinedErr error
	jobs := make([]workerpool.Job, 0, len(orders))
	ids := make([]int64, 0, len(orders))

	for _, order := range orders {
		next, ok := order.Status.Next()
		if !ok {
			combinedErr = multierr.Append(combinedErr,
				TransitionError(order.ID, domain.TransitionNotAllowedError(order.Status)))
			continue
		}
		orderID := order.ID
		job := workerpool.NewJob(ctx, func(ctx context.Context) (any, error) {
			return WithTimeoutAndContextCheck(ctx, bulkUpdateTimeout, func(ctx context.Context) (any, error) {
				return nil, t.update(ctx, orderID, next)
			})
		})
		if t.pool != nil {
			t.pool.Submit(job)
		} else {
			v, err := job.Run(ctx)
			job.Resp <- workerpool.Response{Value: v, Err: err}
		}
		jobs = append(jobs, job)
		ids = append(ids, orderID)
	}

	succeeded := 0
	for i, job := range jobs {
		select {
		case resp := <-job.Resp:
			if resp.Err != nil {
				var orderErr *OrderError
				if !errors.As(resp.Err, &orderErr) {
					resp.Err = TransitionError(ids[i], resp.Err)
				}
				combinedErr = multierr.Append(combinedErr, resp.Err)
				continue
			}
			succeeded++
		case <-ctx.Done():
			combinedErr = multierr.Append(combinedErr, TransitionError(ids[i], ctx.Err()))
		}
	}

	if succeeded > 0 && refetch != nil {
		refetch(ctx)
	}
	return combinedErr
}

func (t *Transitioner) update(ctx context.Context, orderID int64, target domain.OrderStatus) error {
	ctx, span := otel.Tracer("washerman/app").Start(ctx, "Transitioner.update")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.target_status", target.Key()),
	)

	err := t.orders.UpdateOrderStatus(ctx, orderID, target)
	t.metrics.StatusTransition(target, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.log.Warn("status update rejected",
			zap.Int64("order_id", orderID),
			zap.String("target", target.Key()),
			zap.Error(err))
		return TransitionError(orderID, err)
	}

	t.log.Info("status updated", zap.Int64("order_id", orderID), zap.String("status", target.Key()))
	return nil
}

// OrderError ties a failure to the order it happened on.
type OrderError struct {
	OrderID int64
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s: %v", strconv.FormatInt(e.OrderID, 10), e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func TransitionError(orderID int64, err error) error {
	return &OrderError{OrderID: orderID, Err: err}
}
