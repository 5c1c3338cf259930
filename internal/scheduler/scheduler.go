package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rps_challenge/internal/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// deadlines closer than this run immediately instead of at a fixed time
const immediateWindow = 50 * time.Millisecond

type entry struct {
	gen uint64
	id  uuid.UUID
}

// Scheduler runs keyed one-shot callbacks and periodic jobs on gocron.
// Scheduling a key again replaces the previous callback.
type Scheduler struct {
	s   gocron.Scheduler
	log *slog.Logger

	mu      sync.Mutex
	gen     uint64
	entries map[string]entry
}

func New() (*Scheduler, error) {
	l := logger.With("component", "scheduler")
	s, err := gocron.NewScheduler(gocron.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s.Start()
	return &Scheduler{
		s:       s,
		log:     l,
		entries: make(map[string]entry),
	}, nil
}

// Schedule arms fn to run once at the given time under key.
func (sc *Scheduler) Schedule(key string, at time.Time, fn func()) error {
	sc.mu.Lock()
	sc.gen++
	gen := sc.gen
	old, hadOld := sc.entries[key]
	sc.entries[key] = entry{gen: gen}
	sc.mu.Unlock()

	if hadOld && old.id != uuid.Nil {
		sc.remove(old.id)
	}

	start := gocron.OneTimeJobStartDateTime(at)
	if time.Until(at) < immediateWindow {
		start = gocron.OneTimeJobStartImmediately()
	}

	job, err := sc.s.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			sc.mu.Lock()
			if e, ok := sc.entries[key]; ok && e.gen == gen {
				delete(sc.entries, key)
			}
			sc.mu.Unlock()
			fn()
		}),
		gocron.WithName(key),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		sc.mu.Lock()
		if e, ok := sc.entries[key]; ok && e.gen == gen {
			delete(sc.entries, key)
		}
		sc.mu.Unlock()
		return fmt.Errorf("schedule %s: %w", key, err)
	}

	sc.mu.Lock()
	e, ok := sc.entries[key]
	current := ok && e.gen == gen
	if current {
		sc.entries[key] = entry{gen: gen, id: job.ID()}
	}
	sc.mu.Unlock()

	// the entry moved on while the job was being created; removing a job
	// that already ran only logs a not-found error
	if !current {
		sc.remove(job.ID())
	}
	return nil
}

// Cancel disarms the callback for key, if any.
func (sc *Scheduler) Cancel(key string) {
	sc.mu.Lock()
	e, ok := sc.entries[key]
	delete(sc.entries, key)
	sc.mu.Unlock()

	if ok && e.id != uuid.Nil {
		sc.remove(e.id)
	}
}

// Every runs fn every d until Shutdown. Overlapping runs are skipped.
func (sc *Scheduler) Every(d time.Duration, name string, fn func()) error {
	_, err := sc.s.NewJob(
		gocron.DurationJob(d),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Pending is the number of armed one-shot callbacks.
func (sc *Scheduler) Pending() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.entries)
}

func (sc *Scheduler) Shutdown() error {
	return sc.s.Shutdown()
}

func (sc *Scheduler) remove(id uuid.UUID) {
	if err := sc.s.RemoveJob(id); err != nil {
		sc.log.Debug("remove job", "job_id", id, "error", err)
	}
}
