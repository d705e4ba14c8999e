package sessions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildKey(t *testing.T) {
	require.Equal(t, "neko:main", BuildKey("telegram", "123", false, "", DMScopeMain))
	require.Equal(t, "neko:telegram:dm:123", BuildKey("telegram", "123", false, "", DMScopePerChannelPeer))
	require.Equal(t, "neko:telegram:group:-100456", BuildKey("telegram", "123", true, "-100456", DMScopePerChannelPeer))
}

func TestHTTPKey(t *testing.T) {
	require.Equal(t, "neko:http:dm:http-default", HTTPKey(""))
	require.Equal(t, "neko:http:dm:abc", HTTPKey("abc"))
}

func TestParse(t *testing.T) {
	p, ok := Parse("neko:main")
	require.True(t, ok)
	require.True(t, p.IsMain)

	p, ok = Parse("neko:telegram:dm:123")
	require.True(t, ok)
	require.Equal(t, "telegram", p.Channel)
	require.Equal(t, "dm", p.Kind)
	require.Equal(t, "123", p.PeerID)

	_, ok = Parse("not-a-key")
	require.False(t, ok)
}
