// Package scheduler drives the cron tick loop: every 15 seconds it loads
// jobs.json, fires any job whose should_fire rule matches, and persists the
// result (spec.md §4.5).
//
// Grounded on original_source/src/cron/mod.rs's spawn_scheduler.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/superhq-ai/neko/internal/cron"
	"github.com/superhq-ai/neko/internal/telemetry"
)

const tickInterval = 15 * time.Second

// AgentRunner executes one cron-triggered turn. Satisfied by
// *agent.Agent; kept as an interface so this package doesn't depend on
// internal/agent.
type AgentRunner interface {
	RunTurn(ctx context.Context, sessionKey, prompt string) (string, error)
}

// Announcer delivers a job's result to a channel (spec.md §3 OutboundMessage).
type Announcer interface {
	Announce(ctx context.Context, channel, recipientID, text string) error
}

// Scheduler owns the tick loop. One per running gateway.
type Scheduler struct {
	workspace string
	agent     AgentRunner
	announcer Announcer
	log       *slog.Logger
}

// New builds a Scheduler. announcer may be nil if no channels are wired.
func New(workspace string, agent AgentRunner, announcer Announcer, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{workspace: workspace, agent: agent, announcer: announcer, log: log}
}

// Run blocks, ticking every 15s until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("cron scheduler started")
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("cron scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	jobs, err := cron.LoadJobs(s.workspace)
	if err != nil {
		s.log.Error("failed to load cron jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	now := time.Now().UTC()
	modified := false

	for i := range jobs {
		if !cron.ShouldFire(jobs[i], now) {
			continue
		}
		s.fire(ctx, &jobs[i])
		modified = true
	}

	kept := jobs[:0]
	for _, j := range jobs {
		if j.Schedule.Kind == cron.ScheduleAt && !j.KeepAfterRun && j.LastRunAt != nil {
			modified = true
			continue
		}
		kept = append(kept, j)
	}
	jobs = kept

	if modified {
		if err := cron.SaveJobs(s.workspace, jobs); err != nil {
			s.log.Error("failed to save cron jobs", "error", err)
		}
	}
}

// fire runs one job's prompt through the agent and records the outcome,
// mutating job in place (caller persists the slice afterward).
func (s *Scheduler) fire(ctx context.Context, job *cron.Job) {
	label := job.Label()
	ctx, span := telemetry.StartSpan(ctx, "cron.fire",
		attribute.String("job_id", job.ID),
		attribute.String("job_name", job.Name),
	)
	var fireErr error
	defer func() {
		telemetry.EndWithError(span, fireErr)
		span.End()
	}()

	s.log.Info("firing cron job", "job", label)

	sessionKey := fmt.Sprintf("cron:%s", job.ID)
	startedAt := time.Now().UTC()
	response, err := s.agent.RunTurn(ctx, sessionKey, job.Prompt)
	finishedAt := time.Now().UTC()
	fireErr = err

	entry := cron.HistoryEntry{
		JobID:      job.ID,
		JobName:    job.Name,
		Prompt:     job.Prompt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	if err != nil {
		s.log.Error("cron job failed", "job", label, "error", err)
		entry.Success = false
		entry.Error = err.Error()

		failures := job.Retry.ConsecutiveFailures + 1
		retryAfter := finishedAt.Add(cron.BackoffDuration(failures))
		job.Retry = cron.RetryState{ConsecutiveFailures: failures, RetryAfter: &retryAfter}
		job.LastRunAt = &finishedAt
	} else {
		s.log.Info("cron job completed", "job", label, "elapsed", finishedAt.Sub(startedAt))
		entry.Success = true
		entry.Response = cron.Truncate(response, 1000)

		if job.Announce != nil && s.announcer != nil {
			if err := s.announcer.Announce(ctx, job.Announce.Channel, job.Announce.RecipientID, response); err != nil {
				s.log.Error("failed to send cron announcement", "error", err)
			}
		}

		job.LastRunAt = &finishedAt
		job.Retry = cron.RetryState{}

		if job.Schedule.Kind == cron.ScheduleAt && !job.KeepAfterRun {
			s.log.Info("removing completed one-shot job", "job", label)
			job.Enabled = false
		}
	}

	if err := cron.AppendHistory(s.workspace, entry); err != nil {
		s.log.Error("failed to write cron history", "error", err)
	}
}
