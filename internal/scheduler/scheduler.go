package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/awsl-bot/awsl-bot/internal/database"
)

const defaultTickInterval = 5 * time.Second

type TaskStore interface {
	ListEnabled(ctx context.Context) ([]*database.ScheduledTask, error)
	UpdateLastRun(ctx context.Context, id string, lastRun time.Time) error
}

type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// ImageSender fetches a random image for a topic and injects it into the
// chat; image tasks carry the topic in their message field.
type ImageSender interface {
	SendTopic(ctx context.Context, topic string) error
}

// Scheduler periodically runs enabled scheduled tasks, sending their payload
// through the same injector the monitor uses. Task errors are logged and
// never stop the loop.
type Scheduler struct {
	tasks  TaskStore
	sender TextSender
	images ImageSender
	tick   time.Duration
	now    func() time.Time
}

func New(tasks TaskStore, sender TextSender, images ImageSender) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		sender: sender,
		images: images,
		tick:   defaultTickInterval,
		now:    time.Now,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("task scheduler started")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("task scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runPending(ctx)
		}
	}
}

func (s *Scheduler) runPending(ctx context.Context) {
	tasks, err := s.tasks.ListEnabled(ctx)
	if err != nil {
		log.Printf("failed to list scheduled tasks: %v", err)
		return
	}

	now := s.now()
	for _, task := range tasks {
		due, err := isDue(task, now)
		if err != nil {
			log.Printf("task %s has invalid schedule %q: %v", task.Name, task.CronExpr, err)
			continue
		}
		if !due {
			continue
		}

		// last_run advances before the send so a slow or failing send
		// cannot make the task fire again on the next tick.
		if err := s.tasks.UpdateLastRun(ctx, task.ID, now); err != nil {
			log.Printf("failed to update last run for task %s: %v", task.Name, err)
			continue
		}

		log.Printf("running scheduled task %s (%s)", task.Name, task.Type)
		if err := s.send(ctx, task); err != nil {
			log.Printf("scheduled task %s failed to send: %v", task.Name, err)
		}
	}
}

func (s *Scheduler) send(ctx context.Context, task *database.ScheduledTask) error {
	if task.Type == database.TaskTypeImage {
		return s.images.SendTopic(ctx, task.Message)
	}
	return s.sender.SendText(ctx, task.Message)
}

// isDue reports whether the task's cron expression has a firing time later
// than its last run (or creation, for never-run tasks) and not after now.
func isDue(task *database.ScheduledTask, now time.Time) (bool, error) {
	schedule, err := cron.ParseStandard(task.CronExpr)
	if err != nil {
		return false, fmt.Errorf("parsing cron expression: %w", err)
	}

	since := task.CreatedAt
	if task.LastRun != nil {
		since = *task.LastRun
	}

	next := schedule.Next(since)
	return !next.After(now), nil
}
