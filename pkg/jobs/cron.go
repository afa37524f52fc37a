// Package jobs runs the periodic maintenance work of the back office:
// stock alerts, task reminders, sales statistics and the daily report.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jordanlanch/backoffice/pkg/cache"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Run outcomes recorded per job.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// ErrUnknownJob is returned when running a job that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is one scheduled unit of work.
type Job struct {
	Name string
	// Spec is the cron expression, e.g. "0 9 * * *".
	Spec string
	// Every is the length of a run period. At most one run per period
	// takes place across all instances.
	Every   time.Duration
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Period returns the key of the period that contains t.
func (j Job) Period(t time.Time) string {
	if j.Every <= 0 {
		return t.UTC().Format(time.RFC3339)
	}
	return t.UTC().Truncate(j.Every).Format("20060102T1504")
}

// Locker hands out run locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, error)
}

// Recorder receives the outcome of every run.
type Recorder interface {
	RecordJob(job, status string, d time.Duration)
}

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	jobs     map[string]Job
	locks    Locker
	recorder Recorder
	log      logger.Logger
	now      func() time.Time
}

// NewCronManager creates a new cron manager. locks and recorder may be nil,
// in which case runs are neither deduplicated nor recorded.
func NewCronManager(locks Locker, recorder Recorder, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Default()
	}
	return &CronManager{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		jobs:     make(map[string]Job),
		locks:    locks,
		recorder: recorder,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register schedules jobs.
func (cm *CronManager) Register(jobs ...Job) error {
	for _, j := range jobs {
		if _, dup := cm.jobs[j.Name]; dup {
			return fmt.Errorf("job %s registered twice", j.Name)
		}
		job := j
		if _, err := cm.cron.AddFunc(job.Spec, func() {
			if _, err := cm.Run(context.Background(), job.Name); err != nil {
				cm.log.Error("scheduled job failed", "job", job.Name, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		cm.jobs[job.Name] = job
		cm.log.Info("job scheduled", "job", job.Name, "spec", job.Spec)
	}
	return nil
}

// Names lists the registered jobs alphabetically.
func (cm *CronManager) Names() []string {
	names := make([]string, 0, len(cm.jobs))
	for name := range cm.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a job once for the current period. It reports false without
// running when another run already claimed the period. A failed run gives
// the period back so a later trigger can retry.
func (cm *CronManager) Run(ctx context.Context, name string) (bool, error) {
	job, ok := cm.jobs[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	start := cm.now()
	began := time.Now()
	var lock *cache.Lock
	if cm.locks != nil {
		ttl := job.Every
		if ttl <= 0 {
			ttl = time.Hour
		}
		key := fmt.Sprintf("jobs:%s:%s", job.Name, job.Period(start))
		var err error
		lock, err = cm.locks.Acquire(ctx, key, ttl)
		if errors.Is(err, cache.ErrLocked) {
			cm.log.Info("job already ran this period", "job", name, "period", job.Period(start))
			cm.record(name, StatusSkipped, 0)
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to lock job %s: %w", name, err)
		}
	}

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	cm.log.Info("job started", "job", name)
	err := job.Run(ctx)
	elapsed := time.Since(began)
	if err != nil {
		cm.record(name, StatusFailure, elapsed)
		if lock != nil {
			if rerr := lock.Release(context.Background()); rerr != nil {
				cm.log.Warn("failed to release job lock", "job", name, "error", rerr)
			}
		}
		return true, fmt.Errorf("job %s: %w", name, err)
	}
	cm.record(name, StatusSuccess, elapsed)
	cm.log.Info("job completed", "job", name, "duration", elapsed.String())
	return true, nil
}

func (cm *CronManager) record(name, status string, d time.Duration) {
	if cm.recorder != nil {
		cm.recorder.RecordJob(name, status, d)
	}
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.log.Info("starting cron scheduler", "jobs", len(cm.jobs))
	cm.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (cm *CronManager) Stop() context.Context {
	cm.log.Info("stopping cron scheduler")
	return cm.cron.Stop()
}
