package sessions

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/superhq-ai/neko/internal/providers"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := New(t.TempDir(), Policy{Mode: ResetIdle, IdleMinutes: 60}, testLogger())

	id1, err := s.GetOrCreate("neko:main", "", "")
	require.NoError(t, err)
	id2, err := s.GetOrCreate("neko:main", "", "")
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestUpdateHistoryAppendsOnlyNewItemsAndSkipsReasoning(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, Policy{Mode: ResetIdle, IdleMinutes: 60}, testLogger())

	id, err := s.GetOrCreate("neko:main", "", "")
	require.NoError(t, err)

	history := []providers.Item{
		providers.Message{Role: providers.RoleUser, Content: "say hi"},
		providers.FunctionCall{CallID: "call_1", Name: "echo", Arguments: `{"x":"hi"}`},
		providers.FunctionCallOutput{CallID: "call_1", Output: "hi"},
		providers.Reasoning{},
		providers.Message{Role: providers.RoleAssistant, Content: "hi"},
	}
	require.NoError(t, s.UpdateHistory(id, history, &providers.Usage{InputTokens: 10, OutputTokens: 5}, "resp_1"))

	got, lastID, err := s.GetHistory(id)
	require.NoError(t, err)
	require.Equal(t, "resp_1", lastID)
	require.Len(t, got, 5)

	lines := readLines(t, filepath.Join(dir, id+".jsonl"))
	require.Len(t, lines, 4) // reasoning stripped
}

func TestResetArchivesTranscriptAndClearsState(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, Policy{Mode: ResetIdle, IdleMinutes: 60}, testLogger())

	id, err := s.GetOrCreate("neko:main", "", "")
	require.NoError(t, err)
	require.NoError(t, s.UpdateHistory(id, []providers.Item{providers.Message{Role: providers.RoleUser, Content: "hi"}}, nil, "resp_1"))

	require.NoError(t, s.Reset(id))

	history, lastID, err := s.GetHistory(id)
	require.NoError(t, err)
	require.Empty(t, history)
	require.Empty(t, lastID)

	matches, err := filepath.Glob(filepath.Join(dir, id+".*.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestCheckResetIdempotentImmediatelyAfterReset(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, Policy{Mode: ResetIdle, IdleMinutes: 30}, testLogger())

	id, err := s.GetOrCreate("neko:main", "", "")
	require.NoError(t, err)
	require.NoError(t, s.Reset(id))

	triggered, err := s.CheckReset(id)
	require.NoError(t, err)
	require.False(t, triggered)
}

func TestShouldResetIdlePolicy(t *testing.T) {
	s := New(t.TempDir(), Policy{Mode: ResetIdle, IdleMinutes: 30}, testLogger())
	meta := Meta{UpdatedAt: time.Now().Add(-31 * time.Minute)}
	require.True(t, s.shouldReset(meta))

	meta.UpdatedAt = time.Now().Add(-1 * time.Minute)
	require.False(t, s.shouldReset(meta))
}

func TestListSortsByUpdatedAtDescending(t *testing.T) {
	s := New(t.TempDir(), Policy{Mode: ResetIdle, IdleMinutes: 60}, testLogger())
	idA, _ := s.GetOrCreate("neko:a:dm:1", "", "")
	time.Sleep(2 * time.Millisecond)
	idB, _ := s.GetOrCreate("neko:b:dm:1", "", "")

	require.NoError(t, s.UpdateHistory(idB, []providers.Item{providers.Message{Role: providers.RoleUser, Content: "hi"}}, nil, ""))

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, idB, list[0].SessionID)
	require.Equal(t, idA, list[1].SessionID)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	start := 0
	for i, b := range raw {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(raw[start:i]))
			}
			start = i + 1
		}
	}
	return lines
}
