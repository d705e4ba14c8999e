package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldFire_Disabled(t *testing.T) {
	job := Job{Enabled: false, Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * * *"}}
	require.False(t, ShouldFire(job, time.Now()))
}

func TestShouldFire_RetryAfterInFuture(t *testing.T) {
	future := time.Now().Add(time.Hour)
	job := Job{
		Enabled:  true,
		Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * * *"},
		Retry:    RetryState{RetryAfter: &future},
	}
	require.False(t, ShouldFire(job, time.Now()))
}

func TestShouldFire_EverySecondFiresOncePerTick(t *testing.T) {
	now := time.Now()
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleCron, Expr: "* * * * * *"}}
	require.True(t, ShouldFire(job, now))

	last := now
	job.LastRunAt = &last
	require.False(t, ShouldFire(job, now))
}

func TestShouldFire_AtFiresOnceThenNeverAgain(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleAt, Datetime: past}}
	require.True(t, ShouldFire(job, time.Now()))

	ran := time.Now()
	job.LastRunAt = &ran
	require.False(t, ShouldFire(job, time.Now()))
}

func TestShouldFire_AtInFuture(t *testing.T) {
	future := time.Now().Add(time.Hour)
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleAt, Datetime: future}}
	require.False(t, ShouldFire(job, time.Now()))
}

func TestBackoffDuration_Table(t *testing.T) {
	require.Equal(t, time.Duration(0), BackoffDuration(0))
	require.Equal(t, 30*time.Second, BackoffDuration(1))
	require.Equal(t, 60*time.Second, BackoffDuration(2))
	require.Equal(t, 5*time.Minute, BackoffDuration(3))
	require.Equal(t, 15*time.Minute, BackoffDuration(4))
	require.Equal(t, time.Hour, BackoffDuration(5))
	require.Equal(t, time.Hour, BackoffDuration(99))
}

func TestValidateExpr_Rejects5Field(t *testing.T) {
	require.Error(t, ValidateExpr("0 9 * * *"))
	require.NoError(t, ValidateExpr("0 0 9 * * *"))
}

func TestFindJob(t *testing.T) {
	jobs := []Job{{ID: "abc123", Name: "daily"}, {ID: "def456"}}
	idx, ok := FindJob(jobs, "daily")
	require.True(t, ok)
	require.Equal(t, 0, idx)

	idx, ok = FindJob(jobs, "def456")
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = FindJob(jobs, "missing")
	require.False(t, ok)
}

func TestParseAnnounce(t *testing.T) {
	target, err := ParseAnnounce("telegram:123456")
	require.NoError(t, err)
	require.Equal(t, AnnounceTarget{Channel: "telegram", RecipientID: "123456"}, target)

	_, err = ParseAnnounce("bad")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", Truncate("hello", 10))
	require.Equal(t, "he", Truncate("hello", 2))
}

func TestLoadSaveJobs_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	jobs, err := LoadJobs(dir)
	require.NoError(t, err)
	require.Nil(t, jobs)

	job := Job{ID: NewJobID(), Prompt: "say hi", Schedule: Schedule{Kind: ScheduleCron, Expr: "0 0 9 * * *"}, Enabled: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, SaveJobs(dir, []Job{job}))

	loaded, err := LoadJobs(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, job.ID, loaded[0].ID)
}

func TestAppendReadHistory(t *testing.T) {
	dir := t.TempDir()
	entry := HistoryEntry{JobID: "abc", Prompt: "p", StartedAt: time.Now(), FinishedAt: time.Now(), Success: true}
	require.NoError(t, AppendHistory(dir, entry))
	require.NoError(t, AppendHistory(dir, entry))

	entries, err := ReadHistory(dir, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
