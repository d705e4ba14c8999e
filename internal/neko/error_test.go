package neko

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndKindOf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindTool, cause, "tool %q failed", "echo")

	require.ErrorIs(t, err, cause)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindTool, kind)
	require.Contains(t, err.Error(), "tool \"echo\" failed")
}

func TestKindOfUnrelatedError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	require.False(t, ok)
}
