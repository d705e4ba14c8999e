// Package sessions builds and parses session keys and owns the concurrency-
// safe in-memory session table (spec.md §3, §4.2).
//
// Session keys follow spec.md §3's grammar:
//
//	Main (shared DM scope):  neko:main
//	DM, per-channel scope:   neko:<channel>:dm:<peer_id>
//	Group:                   neko:<channel>:group:<group_id>
//
// Grounded on the shape (not the grammar) of the teacher's
// internal/sessions/key.go: pure builder/parser functions, no state.
package sessions

import (
	"fmt"
	"strings"
)

// DMScope selects how direct-message sessions are keyed.
type DMScope string

const (
	DMScopeMain           DMScope = "main"
	DMScopePerChannelPeer DMScope = "per_channel_peer"
)

const MainKey = "neko:main"

// BuildKey resolves the session key for one inbound message, per spec.md §3
// and the `dm_scope` policy from spec.md §6.
func BuildKey(channel, peerID string, isGroup bool, groupID string, dmScope DMScope) string {
	if isGroup {
		return fmt.Sprintf("neko:%s:group:%s", channel, groupID)
	}
	if dmScope == DMScopeMain {
		return MainKey
	}
	return fmt.Sprintf("neko:%s:dm:%s", channel, peerID)
}

// HTTPKey resolves the session key for an HTTP-origin message with no
// explicit session_id (spec.md §4.3 HTTP-origin variant).
func HTTPKey(senderID string) string {
	if senderID == "" {
		senderID = "http-default"
	}
	return fmt.Sprintf("neko:http:dm:%s", senderID)
}

// ParsedKey is the decomposition of a session key produced by Parse.
type ParsedKey struct {
	IsMain  bool
	Channel string
	Kind    string // "dm" or "group"
	PeerID  string
}

// Parse decomposes a session key back into its channel/kind/peer parts.
// Returns ok=false for any string that isn't a well-formed neko session key.
func Parse(key string) (ParsedKey, bool) {
	if key == MainKey {
		return ParsedKey{IsMain: true}, true
	}
	parts := strings.SplitN(key, ":", 4)
	if len(parts) != 4 || parts[0] != "neko" {
		return ParsedKey{}, false
	}
	kind := parts[2]
	if kind != "dm" && kind != "group" {
		return ParsedKey{}, false
	}
	return ParsedKey{Channel: parts[1], Kind: kind, PeerID: parts[3]}, true
}
