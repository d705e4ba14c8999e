package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/superhq-ai/neko/internal/cron"
)

type fakeAgent struct {
	response string
	err      error
	calls    []string
}

func (f *fakeAgent) RunTurn(_ context.Context, _, prompt string) (string, error) {
	f.calls = append(f.calls, prompt)
	return f.response, f.err
}

type fakeAnnouncer struct {
	sent []string
}

func (f *fakeAnnouncer) Announce(_ context.Context, channel, recipientID, text string) error {
	f.sent = append(f.sent, channel+":"+recipientID+":"+text)
	return nil
}

func TestTick_FiresDueJobAndRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	job := cron.Job{
		ID:       "abc123",
		Name:     "greet",
		Prompt:   "say hi",
		Schedule: cron.Schedule{Kind: cron.ScheduleCron, Expr: "* * * * * *"},
		Announce: &cron.AnnounceTarget{Channel: "telegram", RecipientID: "1"},
		Enabled:  true,
	}
	require.NoError(t, cron.SaveJobs(dir, []cron.Job{job}))

	agent := &fakeAgent{response: "hello there"}
	announcer := &fakeAnnouncer{}
	s := New(dir, agent, announcer, nil)

	s.tick(context.Background())

	require.Len(t, agent.calls, 1)
	require.Equal(t, "say hi", agent.calls[0])
	require.Len(t, announcer.sent, 1)
	require.Equal(t, "telegram:1:hello there", announcer.sent[0])

	jobs, err := cron.LoadJobs(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].LastRunAt)

	history, err := cron.ReadHistory(dir, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, history[0].Success)
}

func TestTick_FailureSetsBackoff(t *testing.T) {
	dir := t.TempDir()
	job := cron.Job{
		ID:       "fail1",
		Prompt:   "do thing",
		Schedule: cron.Schedule{Kind: cron.ScheduleCron, Expr: "* * * * * *"},
		Enabled:  true,
	}
	require.NoError(t, cron.SaveJobs(dir, []cron.Job{job}))

	agent := &fakeAgent{err: errBoom{}}
	s := New(dir, agent, nil, nil)
	s.tick(context.Background())

	jobs, err := cron.LoadJobs(dir)
	require.NoError(t, err)
	require.Equal(t, 1, jobs[0].Retry.ConsecutiveFailures)
	require.NotNil(t, jobs[0].Retry.RetryAfter)
	require.True(t, jobs[0].Retry.RetryAfter.After(time.Now().UTC()))
}

func TestTick_RemovesCompletedOneShotJob(t *testing.T) {
	dir := t.TempDir()
	job := cron.Job{
		ID:       "once1",
		Prompt:   "run once",
		Schedule: cron.Schedule{Kind: cron.ScheduleAt, Datetime: time.Now().UTC().Add(-time.Minute)},
		Enabled:  true,
	}
	require.NoError(t, cron.SaveJobs(dir, []cron.Job{job}))

	agent := &fakeAgent{response: "done"}
	s := New(dir, agent, nil, nil)
	s.tick(context.Background())

	jobs, err := cron.LoadJobs(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 0)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
