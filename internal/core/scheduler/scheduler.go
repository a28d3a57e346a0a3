// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler handles cron-based pipeline triggers. Schedules use the standard
// five-field syntax plus descriptors such as "@daily" or "@every 1h".
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]cron.EntryID // job name -> entry id
	jobsMux sync.RWMutex
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		// SkipIfStillRunning: a slow OCR batch must not overlap the next tick.
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	log.Info().Msg("⏰ Starting pipeline scheduler...")
	s.cron.Start()
	log.Info().Int("jobs", len(s.Jobs())).Msg("✅ Pipeline scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	log.Info().Msg("⏰ Stopping pipeline scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("✅ Pipeline scheduler stopped")
}

// AddJob schedules job under name, replacing any job with the same name.
func (s *Scheduler) AddJob(name, schedule string, job func()) error {
	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	entryID, err := s.cron.AddFunc(schedule, job)
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}

	if old, exists := s.jobs[name]; exists {
		s.cron.Remove(old)
	}
	s.jobs[name] = entryID
	log.Info().Str("job", name).Str("schedule", schedule).Msg("   ✅ Scheduled job")

	return nil
}

func (s *Scheduler) RemoveJob(name string) {
	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		log.Info().Str("job", name).Msg("   ✅ Removed scheduled job")
	}
}

// Jobs returns the scheduled job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.jobsMux.RLock()
	defer s.jobsMux.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
