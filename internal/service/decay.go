package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/logger"
	"stellar-pets-api/internal/metrics"
)

// sweepTimeout bounds one decay sweep.
const sweepTimeout = 5 * time.Minute

// DecayScheduler applies health decay to every pet on a cron schedule.
type DecayScheduler struct {
	ledger   *PetLedger
	schedule string
	cron     *cron.Cron
	log      *logrus.Entry

	mu        sync.Mutex
	isRunning bool
}

// NewDecayScheduler creates a scheduler for schedule (standard cron or a descriptor such
// as "@daily"). The ledger must advance its decay anchor, otherwise every sweep would
// decay pets again for the same days.
func NewDecayScheduler(ledger *PetLedger, schedule string, log logrus.FieldLogger) (*DecayScheduler, error) {
	if !ledger.DecayAdvancesAnchor() {
		return nil, errors.New("decay sweep requires a ledger that advances its decay anchor")
	}

	s := &DecayScheduler{
		ledger:   ledger,
		schedule: schedule,
		cron:     cron.New(),
		log:      logger.Component(log, "decay_scheduler"),
	}
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return nil, fmt.Errorf("invalid decay schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the decay scheduler.
func (s *DecayScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.isRunning = true
	s.cron.Start()

	s.log.WithField("schedule", s.schedule).Info("started")
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *DecayScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Info("stopped")
}

func (s *DecayScheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.RunNow(ctx)
	if err != nil {
		s.log.WithError(err).WithField("pets", n).Error("decay sweep failed")
		return
	}
	s.log.WithField("pets", n).Info("decay sweep complete")
}

// RunNow decays every pet once and returns how many were visited.
// Per-pet failures do not stop the sweep; they are joined into the returned error.
func (s *DecayScheduler) RunNow(ctx context.Context) (int, error) {
	owners, err := s.ledger.Owners(ctx)
	if err != nil {
		metrics.ObserveDecaySweep(0, err)
		return 0, err
	}

	var errs []error
	visited := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.ledger.UpdateHealthDecay(ctx, owner); err != nil {
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			continue
		}
		visited++
	}

	err = errors.Join(errs...)
	metrics.ObserveDecaySweep(visited, err)
	return visited, err
}
