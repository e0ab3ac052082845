package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yemble/pointcast/internal/forecast"
)

// Scheduler periodically refreshes the forecast for the current location so
// the landing view stays warm.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	controller *forecast.Controller
	interval   time.Duration
}

// New creates a new Scheduler.
func New(controller *forecast.Controller, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		controller: controller,
		interval:   interval,
	}
}

// Start schedules the periodic refresh job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: refreshing forecast")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.controller.Refresh(ctx); err != nil {
			log.Printf("scheduler: refresh failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
