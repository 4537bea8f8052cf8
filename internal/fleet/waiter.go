package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/m45t3r/google-cloud-bench/internal/provisioning"

	"go.uber.org/zap"
)

// OperationGetter is the single provider call the waiter needs.
type OperationGetter interface {
	GetOperation(ctx context.Context, id string) (*provisioning.Operation, error)
}

// Sleeper pauses between polling rounds. Injected so tests can run the
// wait loop without real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Waiter blocks until a batch of provider operations is terminal. Each
// polling round looks up every operation in the batch; a single
// still-pending operation keeps the whole batch waiting.
type Waiter struct {
	ops      OperationGetter
	interval time.Duration
	maxPolls int
	sleeper  Sleeper
	logger   *zap.Logger
}

// NewWaiter creates a Waiter polling ops every interval. A maxPolls of
// 0 waits forever, matching the provider's promise that operations
// eventually settle.
func NewWaiter(ops OperationGetter, interval time.Duration, maxPolls int, logger *zap.Logger) *Waiter {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{
		ops:      ops,
		interval: interval,
		maxPolls: maxPolls,
		sleeper:  timerSleeper{},
		logger:   logger,
	}
}

// SetSleeper replaces the pause between polling rounds.
func (w *Waiter) SetSleeper(s Sleeper) {
	if s != nil {
		w.sleeper = s
	}
}

// WaitAll polls until every operation in ids is DONE, then surfaces
// the first operation error in input order, if any. Sibling errors in
// the same batch are logged and dropped. An empty batch succeeds
// immediately without a single lookup.
func (w *Waiter) WaitAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	w.logger.Info("waiting for operations to finish", zap.Int("count", len(ids)))

	results := make([]*provisioning.Operation, len(ids))
	for polls := 1; ; polls++ {
		allDone := true
		for i, id := range ids {
			op, err := w.ops.GetOperation(ctx, id)
			if err != nil {
				return fmt.Errorf("polling operation %s: %w", id, err)
			}
			if op.Status != provisioning.OperationDone {
				allDone = false
			}
			results[i] = op
		}

		if allDone {
			w.logger.Info("operations finished", zap.Int("count", len(ids)), zap.Int("polls", polls))
			return firstError(results, w.logger)
		}

		if w.maxPolls > 0 && polls >= w.maxPolls {
			return fmt.Errorf("operations still pending after %d polls", polls)
		}
		if err := w.sleeper.Sleep(ctx, w.interval); err != nil {
			return err
		}
	}
}

func firstError(results []*provisioning.Operation, logger *zap.Logger) error {
	var first error
	for _, op := range results {
		if op.Err == nil {
			continue
		}
		if first == nil {
			first = &OperationError{ID: op.ID, Err: op.Err}
		} else {
			logger.Debug("dropping sibling operation error",
				zap.String("operation", op.ID), zap.Error(op.Err))
		}
	}
	return first
}
