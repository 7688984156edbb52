package scheduler

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

var errInvalidInterval = errors.New("interval must be positive")

// Scheduler runs periodic jobs, such as device position refreshes, on a
// gocron scheduler.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       zerolog.Logger
}

// New creates a new Scheduler. Call Start before jobs can fire.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the underlying scheduler without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	s.log.Debug().Msg("scheduler started")
}

// Every schedules job to run every interval, first after one full interval.
// A run that is still in progress is never overlapped by the next one.
func (s *Scheduler) Every(interval time.Duration, job func()) (func(), error) {
	if interval <= 0 {
		return nil, errInvalidInterval
	}

	j, err := s.scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(func() {
		s.log.Debug().Dur("interval", interval).Msg("running scheduled job")
		job()
	})
	if err != nil {
		return nil, err
	}

	return func() {
		s.scheduler.RemoveByReference(j)
		s.log.Debug().Dur("interval", interval).Msg("scheduled job removed")
	}, nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
