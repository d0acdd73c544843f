// Package cron implements the Cron Scheduler: a single
// owner loop that refreshes a schedule table from active Scheduled
// definitions and, on each check_interval tick, starts and enqueues due
// instances. The schedule table itself lives behind one mutex with
// readers getting a snapshot copy, the same discipline as any other
// piece of shared mutable state touched by more than one goroutine.
package cron

import (
	"context"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/lock"
	"github.com/flowforge/flowforge/persistence"
	"github.com/flowforge/flowforge/queue"
	"github.com/flowforge/flowforge/workflow"
)

// parser is the standard six-field (seconds-first) cron grammar; only
// Parse and Schedule.Next are used — FlowForge drives its own tick loop
// rather than robfig/cron's internal goroutine runner, so refresh and
// dispatch stay on one explicit owner loop.
var parser = robfigcron.NewParser(
	robfigcron.Second | robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
)

// TriggerNowPriority and TickPriority are the job priorities assigned to
// a forced trigger versus a regular scheduled tick.
const (
	TriggerNowPriority = 10
	TickPriority       = 50
)

type schedule struct {
	name     string
	version  int
	cron     string
	sched    robfigcron.Schedule
	enabled  bool
	lastRun  time.Time
	nextRun  time.Time
}

// Options configures the Scheduler's tick cadence and bounds.
type Options struct {
	CheckInterval     time.Duration
	MaxStartsPerCheck int
	Timezone          *time.Location
	LockWaitTimeout   time.Duration
	LockLease         time.Duration
}

func defaultOptions() Options {
	return Options{
		CheckInterval:     10 * time.Second,
		MaxStartsPerCheck: 100,
		Timezone:          time.UTC,
		LockWaitTimeout:   time.Second,
		LockLease:         30 * time.Second,
	}
}

// schedulerLockKey is the well-known lock key replicas singletonize the
// scheduler around.
const schedulerLockKey = "scheduler"

// Scheduler owns the schedule table behind one mutex, refreshes
// it from Persistence, and on each tick starts and enqueues due instances.
type Scheduler struct {
	store   persistence.Port
	eng     *engine.Engine
	q       queue.Queue
	locker  lock.Locker
	logger  *zap.Logger
	opts    Options

	mu        sync.Mutex
	schedules map[string]*schedule // keyed by workflow name
}

// New builds a Scheduler. Any zero-valued Options field falls back to
// the default.
func New(store persistence.Port, eng *engine.Engine, q queue.Queue, locker lock.Locker, logger *zap.Logger, opts Options) *Scheduler {
	defaults := defaultOptions()
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaults.CheckInterval
	}
	if opts.MaxStartsPerCheck <= 0 {
		opts.MaxStartsPerCheck = defaults.MaxStartsPerCheck
	}
	if opts.Timezone == nil {
		opts.Timezone = defaults.Timezone
	}
	if opts.LockWaitTimeout <= 0 {
		opts.LockWaitTimeout = defaults.LockWaitTimeout
	}
	if opts.LockLease <= 0 {
		opts.LockLease = defaults.LockLease
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:     store,
		eng:       eng,
		q:         q,
		locker:    locker,
		logger:    logger,
		opts:      opts,
		schedules: make(map[string]*schedule),
	}
}

// RefreshSchedule reloads the schedule table from every active definition
// whose trigger is Scheduled. Invalid cron expressions are logged and
// skipped rather than aborting the refresh.
func (s *Scheduler) RefreshSchedule(ctx context.Context) error {
	defs, err := s.store.Definitions.List(ctx, false)
	if err != nil {
		return err
	}

	fresh := make(map[string]*schedule, len(defs))
	now := time.Now().In(s.opts.Timezone)

	for _, def := range defs {
		if def.Trigger != workflow.ScheduledTrigger || def.CronExpression == "" {
			continue
		}
		parsed, err := parser.Parse(def.CronExpression)
		if err != nil {
			s.logger.Warn("invalid cron expression, skipping schedule",
				zap.String("workflow", def.Name), zap.String("cron", def.CronExpression), zap.Error(err))
			continue
		}

		s.mu.Lock()
		existing := s.schedules[def.Name]
		s.mu.Unlock()

		sc := &schedule{name: def.Name, version: def.Version, cron: def.CronExpression, sched: parsed, enabled: true}
		if existing != nil && existing.cron == def.CronExpression {
			sc.lastRun = existing.lastRun
			sc.nextRun = existing.nextRun
		} else {
			sc.nextRun = parsed.Next(now)
		}
		fresh[def.Name] = sc
	}

	s.mu.Lock()
	s.schedules = fresh
	s.mu.Unlock()
	return nil
}

// Run starts the refresh-then-tick loop; it blocks until ctx is cancelled.
// The scheduler singletonizes itself across replicas by holding the
// well-known scheduler lock key for the duration of each tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.RefreshSchedule(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	handle, err := s.locker.Acquire(ctx, schedulerLockKey, s.opts.LockWaitTimeout, s.opts.LockLease)
	if err != nil {
		s.logger.Error("scheduler lock acquire failed", zap.Error(err))
		return
	}
	if handle == nil {
		// Another replica holds the scheduler lock this tick; that is the
		// expected steady state, not an error.
		return
	}
	defer func() { _ = handle.Release(ctx) }()

	now := time.Now().In(s.opts.Timezone)

	s.mu.Lock()
	due := make([]*schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		if sc.enabled && !sc.nextRun.After(now) {
			due = append(due, sc)
		}
	}
	s.mu.Unlock()

	started := 0
	for _, sc := range due {
		if started >= s.opts.MaxStartsPerCheck {
			break
		}
		if err := s.startScheduled(ctx, sc, now, TickPriority); err != nil {
			s.logger.Error("scheduled start failed", zap.String("workflow", sc.name), zap.Error(err))
			continue
		}
		started++
	}
}

// startScheduled calls Engine.Start, publishes a Start job for the
// resulting instance_id at priority, and (for regular ticks, not
// TriggerNow) advances last_run/next_run.
func (s *Scheduler) startScheduled(ctx context.Context, sc *schedule, now time.Time, priority int, updateNextRun ...bool) error {
	inst, err := s.eng.Start(ctx, sc.name, &sc.version, nil, "", "")
	if err != nil {
		return err
	}

	job := queue.Job{InstanceID: inst.ID, Type: queue.Start, Priority: priority}
	if err := s.q.Publish(ctx, job); err != nil {
		return err
	}

	advance := len(updateNextRun) == 0 || updateNextRun[0]
	if advance {
		s.mu.Lock()
		sc.lastRun = now
		sc.nextRun = sc.sched.Next(now)
		s.mu.Unlock()
	}
	return nil
}

// TriggerNow forces one start for name at priority 10 without touching
// next_run. It returns the new instance id.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	sc, ok := s.schedules[name]
	s.mu.Unlock()
	if !ok {
		inst, err := s.eng.Start(ctx, name, nil, nil, "", "")
		if err != nil {
			return "", err
		}
		if err := s.q.Publish(ctx, queue.Job{InstanceID: inst.ID, Type: queue.Start, Priority: TriggerNowPriority}); err != nil {
			return "", err
		}
		return inst.ID, nil
	}

	inst, err := s.eng.Start(ctx, sc.name, &sc.version, nil, "", "")
	if err != nil {
		return "", err
	}
	if err := s.q.Publish(ctx, queue.Job{InstanceID: inst.ID, Type: queue.Start, Priority: TriggerNowPriority}); err != nil {
		return "", err
	}
	return inst.ID, nil
}
