package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers the daily report at a configured local wall-clock time.
// The schedule can be replaced at runtime through the API.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger

	mu    sync.Mutex
	entry cron.EntryID
	spec  string
}

// NewScheduler creates a scheduler firing in loc.
func NewScheduler(service *Service, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		service: service,
		logger:  logger,
	}
}

// Start registers the daily job at the given HH:MM time and starts the cron
// loop. An empty time means no scheduled reports.
func (s *Scheduler) Start(at string) error {
	if at != "" {
		if err := s.Reschedule(at); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Reschedule replaces the daily job with one firing at the given HH:MM time.
func (s *Scheduler) Reschedule(at string) error {
	hour, minute, err := parseClock(at)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	entry, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("scheduling daily report: %w", err)
	}

	s.entry = entry
	s.spec = at
	s.logger.Info("daily report scheduled", "time", at)
	return nil
}

// ScheduledAt returns the currently configured HH:MM time, or "" when no job
// is scheduled.
func (s *Scheduler) ScheduledAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.service.SendDaily(ctx); err != nil {
		s.logger.Error("scheduled report failed", "error", err)
	}
}

func parseClock(at string) (int, int, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time %q must be in HH:MM form", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("time %q has an invalid hour", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q has an invalid minute", at)
	}

	return hour, minute, nil
}
