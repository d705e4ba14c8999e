package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemRoundTrip(t *testing.T) {
	cases := []Item{
		Message{Role: RoleUser, Content: "say hi"},
		FunctionCall{ID: "fc_1", CallID: "call_1", Name: "echo", Arguments: `{"x":"hi"}`},
		FunctionCallOutput{CallID: "call_1", Output: "hi"},
		Reasoning{Raw: json.RawMessage(`{"type":"reasoning","summary":[{"text":"thinking..."}]}`)},
		Other{Type: "web_search_call", Raw: json.RawMessage(`{"type":"web_search_call","id":"ws_1"}`)},
	}

	for _, item := range cases {
		raw, err := MarshalItem(item)
		require.NoError(t, err)

		got, err := UnmarshalItem(raw)
		require.NoError(t, err)
		require.Equal(t, item, got)

		raw2, err := MarshalItem(got)
		require.NoError(t, err)
		require.JSONEq(t, string(raw), string(raw2))
	}
}

func TestUnmarshalItemUnknownTypeNeverFails(t *testing.T) {
	item, err := UnmarshalItem([]byte(`{"type":"file_search_call","id":"fs_1","queries":["x"]}`))
	require.NoError(t, err)
	other, ok := item.(Other)
	require.True(t, ok)
	require.Equal(t, "file_search_call", other.Type)
}

func TestIsPersistable(t *testing.T) {
	require.True(t, IsPersistable(Message{Role: RoleUser, Content: "hi"}))
	require.True(t, IsPersistable(FunctionCall{}))
	require.True(t, IsPersistable(FunctionCallOutput{}))
	require.False(t, IsPersistable(Reasoning{}))
}
