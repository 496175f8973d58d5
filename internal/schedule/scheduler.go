package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler runs jobs on five-field cron specs. A job never overlaps
// with itself: a tick that fires while the previous run is active is dropped.
type CronScheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	runners map[string]*runner
}

type runner struct {
	job     Job
	spec    string
	entry   cron.EntryID
	running atomic.Bool
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		ctx:     context.Background(),
		runners: make(map[string]*runner),
	}
}

// AddJob registers job under spec. An empty spec leaves the job disabled.
func (c *CronScheduler) AddJob(job Job, spec string) error {
	spec = strings.TrimSpace(spec)
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", job.Name()), zap.String("spec", spec))
	if spec == "" {
		logger.Info("job disabled")
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.runners[job.Name()]; ok {
		return fmt.Errorf("job %s already scheduled", job.Name())
	}
	r := &runner{job: job, spec: spec}
	entry, err := c.cron.AddFunc(spec, func() { c.execute(r) })
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return fmt.Errorf("schedule job %s: %w", job.Name(), err)
	}
	r.entry = entry
	c.runners[job.Name()] = r
	logger.Info("job scheduled")
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()
	c.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (c *CronScheduler) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	<-c.cron.Stop().Done()
}

// Trigger runs a scheduled job immediately, subject to the same overlap rule.
// It reports false when the job is unknown or already running.
func (c *CronScheduler) Trigger(name string) bool {
	c.mu.Lock()
	r, ok := c.runners[name]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return c.execute(r)
}

// Jobs lists the scheduled job names with their next run time.
func (c *CronScheduler) Jobs() map[string]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]time.Time, len(c.runners))
	for name, r := range c.runners {
		out[name] = c.cron.Entry(r.entry).Next
	}
	return out
}

func (c *CronScheduler) execute(r *runner) bool {
	if !r.running.CompareAndSwap(false, true) {
		logutil.GetLogger(context.Background()).Info("job skipped: still running",
			zap.String("job", r.job.Name()), zap.String("spec", r.spec))
		return false
	}
	defer r.running.Store(false)

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	logger := logutil.GetLogger(ctx).With(zap.String("job", r.job.Name()), zap.String("spec", r.spec))
	start := time.Now()
	logger.Info("job started")
	err := r.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return true
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
	return true
}
