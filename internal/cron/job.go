// Package cron holds the CronJob data model, its jobs.json/history.jsonl
// persistence, and the should_fire/backoff scheduling logic (spec.md §4.5).
// The ticker loop that drives this lives in internal/scheduler; this package
// is shared by the scheduler and the agent-facing cron_manage tool so both
// read/write the same jobs.json without duplicating the model.
//
// Grounded on original_source/src/cron/mod.rs.
package cron

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/superhq-ai/neko/internal/neko"
)

// ScheduleKind distinguishes a recurring cron expression from a one-shot
// datetime (spec.md §3 CronJob.schedule).
type ScheduleKind string

const (
	ScheduleCron ScheduleKind = "cron"
	ScheduleAt   ScheduleKind = "at"
)

// Schedule is CronJob's tagged-union schedule field.
type Schedule struct {
	Kind     ScheduleKind `json:"type"`
	Expr     string       `json:"expr,omitempty"`
	Datetime time.Time    `json:"datetime,omitempty"`
}

// AnnounceTarget is where a job's result is delivered (spec.md §3).
type AnnounceTarget struct {
	Channel     string `json:"channel"`
	RecipientID string `json:"recipient_id"`
}

// RetryState tracks consecutive failures and the backoff deadline.
type RetryState struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	RetryAfter          *time.Time `json:"retry_after,omitempty"`
}

// Job is one persisted cron/one-shot job (spec.md §3 CronJob).
type Job struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	Prompt       string          `json:"prompt"`
	Schedule     Schedule        `json:"schedule"`
	Announce     *AnnounceTarget `json:"announce,omitempty"`
	Enabled      bool            `json:"enabled"`
	KeepAfterRun bool            `json:"keep_after_run"`
	CreatedAt    time.Time       `json:"created_at"`
	LastRunAt    *time.Time      `json:"last_run_at,omitempty"`
	Retry        RetryState      `json:"retry"`
}

// Label returns the job's name, or its id if unnamed.
func (j Job) Label() string {
	if j.Name != "" {
		return j.Name
	}
	return j.ID
}

// HistoryEntry is one audit-log line in history.jsonl (spec.md §3).
type HistoryEntry struct {
	JobID      string    `json:"job_id"`
	JobName    string    `json:"job_name,omitempty"`
	Prompt     string    `json:"prompt"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Success    bool      `json:"success"`
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func cronDir(workspace string) string     { return filepath.Join(workspace, "cron") }
func jobsPath(workspace string) string    { return filepath.Join(cronDir(workspace), "jobs.json") }
func historyPath(workspace string) string { return filepath.Join(cronDir(workspace), "history.jsonl") }

// LoadJobs reads jobs.json, or returns an empty slice if it doesn't exist.
func LoadJobs(workspace string) ([]Job, error) {
	data, err := os.ReadFile(jobsPath(workspace))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, neko.Wrap(neko.KindIO, err, "read jobs.json")
	}
	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, neko.Wrap(neko.KindCron, err, "parse jobs.json")
	}
	return jobs, nil
}

// SaveJobs rewrites jobs.json wholesale (spec.md §5: "jobs.json is
// rewritten wholesale each tick that observes changes").
func SaveJobs(workspace string, jobs []Job) error {
	if err := os.MkdirAll(cronDir(workspace), 0o755); err != nil {
		return neko.Wrap(neko.KindIO, err, "create cron dir")
	}
	if jobs == nil {
		jobs = []Job{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return neko.Wrap(neko.KindCron, err, "marshal jobs.json")
	}
	if err := os.WriteFile(jobsPath(workspace), data, 0o644); err != nil {
		return neko.Wrap(neko.KindIO, err, "write jobs.json")
	}
	return nil
}

// AppendHistory appends one audit-log line to history.jsonl. No rotation
// policy is applied — left to operator tooling per spec.md §9.
func AppendHistory(workspace string, entry HistoryEntry) error {
	if err := os.MkdirAll(cronDir(workspace), 0o755); err != nil {
		return neko.Wrap(neko.KindIO, err, "create cron dir")
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return neko.Wrap(neko.KindCron, err, "marshal history entry")
	}
	f, err := os.OpenFile(historyPath(workspace), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return neko.Wrap(neko.KindIO, err, "open history.jsonl")
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return neko.Wrap(neko.KindIO, err, "write history line")
	}
	return nil
}

// ReadHistory returns the last `lines` entries, skipping malformed ones
// with a warning.
func ReadHistory(workspace string, lines int) ([]HistoryEntry, error) {
	data, err := os.ReadFile(historyPath(workspace))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, neko.Wrap(neko.KindIO, err, "read history.jsonl")
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) == 1 && all[0] == "" {
		return nil, nil
	}
	start := 0
	if len(all) > lines {
		start = len(all) - lines
	}
	var entries []HistoryEntry
	for _, line := range all[start:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e HistoryEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			slog.Warn("skipping malformed cron history line", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ShouldFire implements spec.md §4.5's should_fire rules.
func ShouldFire(job Job, now time.Time) bool {
	if !job.Enabled {
		return false
	}
	if job.Retry.RetryAfter != nil && now.Before(*job.Retry.RetryAfter) {
		return false
	}

	switch job.Schedule.Kind {
	case ScheduleCron:
		prev, ok := latestScheduledInstant(job.Schedule.Expr, now.Add(-16*time.Second), now)
		if !ok {
			return false
		}
		if job.LastRunAt == nil {
			return true
		}
		return prev.After(*job.LastRunAt)
	case ScheduleAt:
		if now.Before(job.Schedule.Datetime) {
			return false
		}
		return job.LastRunAt == nil
	default:
		return false
	}
}

// latestScheduledInstant scans second-by-second backward from to toward
// from and returns the most recent instant the expression is due at,
// matching spec.md §4.5's "find the latest scheduled instant in
// [now-16s, now]" (a 15s tick cannot miss a minute boundary).
func latestScheduledInstant(expr string, from, to time.Time) (time.Time, bool) {
	g := gronx.New()
	if !g.IsValid(expr) {
		return time.Time{}, false
	}
	for t := to; !t.Before(from); t = t.Add(-time.Second) {
		due, err := g.IsDue(expr, t)
		if err == nil && due {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateExpr rejects malformed or non-6-field cron expressions (spec.md
// §9 "ambiguous cron grammar": this implementation requires the 6-field
// dialect including seconds).
func ValidateExpr(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 6 {
		return neko.New(neko.KindCron, "cron expression must have 6 fields (sec min hour day month weekday): %q", expr)
	}
	if !gronx.New().IsValid(expr) {
		return neko.New(neko.KindCron, "invalid cron expression: %q", expr)
	}
	return nil
}

// BackoffDuration maps consecutive_failures to the spec.md §4.5 backoff table.
func BackoffDuration(consecutiveFailures int) time.Duration {
	switch consecutiveFailures {
	case 0:
		return 0
	case 1:
		return 30 * time.Second
	case 2:
		return 60 * time.Second
	case 3:
		return 5 * time.Minute
	case 4:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}

// FindJob locates a job by id or name.
func FindJob(jobs []Job, idOrName string) (int, bool) {
	for i, j := range jobs {
		if j.ID == idOrName || (j.Name != "" && j.Name == idOrName) {
			return i, true
		}
	}
	return -1, false
}

// ParseAnnounce parses "channel:recipient_id" into an AnnounceTarget.
func ParseAnnounce(s string) (AnnounceTarget, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return AnnounceTarget{}, neko.New(neko.KindCron, "announce format: channel:recipient_id (e.g. telegram:123456)")
	}
	return AnnounceTarget{Channel: parts[0], RecipientID: parts[1]}, nil
}

// NewJobID generates an 8-character random job id.
func NewJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ParseDatetime parses a one-shot "at" datetime in local time, falling back
// to RFC 3339.
func ParseDatetime(s string) (time.Time, error) {
	formats := []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("could not parse datetime: %q (expected YYYY-MM-DD HH:MM)", s)
}

// Truncate shortens s to at most max runes total, including the "..."
// suffix when truncated — used for the ≤1000-char HistoryEntry.Response
// field (spec.md §3).
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
