package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler queues a re-index on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// NewScheduler parses spec (standard five-field cron, or descriptors such
// as "@hourly") and arranges for o to re-index on it.
func NewScheduler(spec string, o *Orchestrator, log *slog.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		job, err := o.SubmitReindex("schedule", false)
		if err != nil {
			log.Warn("scheduled re-index not queued", "error", err)
			return
		}
		log.Info("scheduled re-index queued", "job_id", job.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("parse index schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("index schedule started", "next", s.cron.Entries()[0].Next)
}

// Stop halts the schedule and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
