// Package jobs holds scheduled maintenance work.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ListingPruner deletes listings whose expiry has passed.
type ListingPruner interface {
	PruneExpiredListings(ctx context.Context) (int, error)
}

// ListingExpiryJob removes expired listings on a schedule, so the store
// is compacted even when nobody reads the listing feed.
type ListingExpiryJob struct {
	pruner   ListingPruner
	schedule string
	log      *slog.Logger
	cron     *cron.Cron
}

func NewListingExpiryJob(pruner ListingPruner, schedule string, log *slog.Logger) *ListingExpiryJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(log.With("sub", "cron"))))
	return &ListingExpiryJob{
		pruner:   pruner,
		schedule: schedule,
		log:      log.With("job", "listing_expiry"),
		cron:     scheduler,
	}
}

// SetupAndStart schedules the job and starts the scheduler. An empty
// schedule disables the job.
func (j *ListingExpiryJob) SetupAndStart() error {
	if j.schedule == "" {
		j.log.Warn("listing expiry job schedule not set, job will not run")
		return nil
	}

	id, err := j.cron.AddFunc(j.schedule, j.Run)
	if err != nil {
		j.log.Error("failed to schedule listing expiry job", "spec", j.schedule, "err", err)
		return err
	}

	j.log.Info("listing expiry job scheduled", "spec", j.schedule, "entry", id)
	j.cron.Start()
	return nil
}

// Run performs one pass.
func (j *ListingExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := j.pruner.PruneExpiredListings(ctx)
	if err != nil {
		j.log.Error("listing expiry run failed", "err", err)
		return
	}
	j.log.Info("listing expiry run completed", "listings_expired", n)
}

// Stop waits for a running pass to finish, up to ten seconds.
func (j *ListingExpiryJob) Stop() {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
		j.log.Info("listing expiry scheduler stopped")
	case <-time.After(10 * time.Second):
		j.log.Warn("listing expiry scheduler stop timed out")
	}
}
