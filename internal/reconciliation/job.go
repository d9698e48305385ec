package reconciliation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const scanTimeout = 10 * time.Second

// Job runs Scan on a cron schedule.
type Job struct {
	cron    *cron.Cron
	service *Service
	logger  zerolog.Logger
}

// NewJob schedules the scan. The schedule accepts standard cron expressions and descriptors like "@every 1m".
func NewJob(service *Service, schedule string, logger zerolog.Logger) (*Job, error) {
	j := &Job{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		service: service,
		logger:  logger.With().Str("job", "reconciliation").Logger(),
	}

	if _, err := j.cron.AddFunc(schedule, j.Run); err != nil {
		return nil, err
	}

	return j, nil
}

// Run performs one scan.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(j.logger.WithContext(context.Background()), scanTimeout)
	defer cancel()

	_, _ = j.service.Scan(ctx)
}

// Start runs the schedule in its own goroutine.
func (j *Job) Start() {
	j.cron.Start()
}

// Stop stops the schedule and waits for a running scan to finish or ctx to be done.
func (j *Job) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}
