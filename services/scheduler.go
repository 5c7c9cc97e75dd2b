// services/scheduler.go
package services

import (
	"log"
	"time"

	"league-event-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartRegistrationScheduler closes registration for events whose start time
// has passed. Runs every minute for the life of the process.
func (s *EventService) StartRegistrationScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var events []models.Event
			now := time.Now()
			err := s.DB.Where("status = ? AND start_time <= ?", models.EventRegistrationOpen, now).
				Find(&events).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, e := range events {
				if err := s.DB.Model(&e).Update("status", models.EventRegistrationClosed).Error; err != nil {
					log.Printf("[Scheduler] Failed to close registration for event %s: %v", e.ID, err)
				} else {
					log.Printf("[Scheduler] Closed registration for event: %s", e.Title)
				}
			}
		}),
	)
}
