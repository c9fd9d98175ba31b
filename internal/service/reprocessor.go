package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	ierr "github.com/inkpress/inkpress/internal/errors"
)

const reprocessBatchSize = 50

// stuckEventGracePeriod keeps the reprocessor away from events the live
// webhook path may still be handling.
const stuckEventGracePeriod = 2 * time.Minute

// Reprocessor periodically re-runs webhook events stuck in received or
// failed state, the recovery path for crashes between persisting an event
// and committing its processing.
type Reprocessor struct {
	ServiceParams
	webhooks WebhookService
}

func NewReprocessor(params ServiceParams, webhooks WebhookService) *Reprocessor {
	return &Reprocessor{ServiceParams: params, webhooks: webhooks}
}

// Start runs the scan loop until ctx is canceled. A zero configured
// interval disables the reprocessor.
func (r *Reprocessor) Start(ctx context.Context) {
	interval := r.Config.Webhook.ReprocessInterval
	if interval <= 0 {
		r.Logger.Infow("webhook reprocessor disabled")
		return
	}

	r.Logger.Infow("webhook reprocessor started",
		"interval", interval,
		"max_age", r.Config.Webhook.ReprocessMaxAge,
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Infow("webhook reprocessor stopped")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.Logger.Errorw("reprocess scan failed", "error", err)
			}
		}
	}
}

// RunOnce scans for stuck events and reprocesses each with a short
// exponential backoff. One event failing does not stop the batch.
func (r *Reprocessor) RunOnce(ctx context.Context) error {
	events, err := r.WebhookEventRepo.ListStuck(ctx, stuckEventGracePeriod, r.Config.Webhook.ReprocessMaxAge, reprocessBatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	r.Logger.Infow("reprocessing stuck webhook events", "count", len(events))
	for _, e := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.reprocessWithBackoff(ctx, e.ID); err != nil {
			r.Logger.Warnw("stuck event still failing",
				"event_id", e.ID,
				"event_type", e.EventType,
				"error", err,
			)
		}
	}
	return nil
}

func (r *Reprocessor) reprocessWithBackoff(ctx context.Context, eventID string) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		err := r.webhooks.ReprocessEvent(ctx, eventID)
		if err == nil {
			return nil
		}
		if !ierr.IsRetryable(err) {
			// Deterministic failures do not get better with retries; the
			// row stays failed for an operator.
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
