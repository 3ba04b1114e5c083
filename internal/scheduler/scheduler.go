// Package scheduler runs scans on a cron schedule for the long-lived
// service mode.
package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a seconds-resolution cron runner. Jobs that overlap
// a still-running scan are skipped rather than stacked.
type Scheduler struct {
	cron    *cron.Cron
	running chan struct{}
}

func New() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		running: make(chan struct{}, 1),
	}
}

// Schedule registers job under a six-field cron spec.
func (s *Scheduler) Schedule(spec string, name string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		select {
		case s.running <- struct{}{}:
		default:
			log.Printf("[WARN] %s still running, skipping this trigger", name)
			return
		}
		defer func() { <-s.running }()

		log.Printf("[INFO] scheduled %s triggered", name)
		job()
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	log.Printf("[INFO] %s scheduled: %s", name, spec)
	return nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("[INFO] scheduler stopped")
}
