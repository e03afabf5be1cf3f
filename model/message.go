package model

import (
	"strings"
	"time"
)

// Chat roles understood by the relay.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SummaryPrefix marks system messages synthesized by the summarization
// strategy, so later reductions preserve them instead of summarizing
// them again.
const SummaryPrefix = "[Previous conversation summary]: "

// Message is a single chat message as stored in a session history.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Name      string     `json:"name,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// NewMessage returns a message stamped with the current time.
func NewMessage(role, content string) Message {
	now := time.Now().UTC()
	return Message{Role: role, Content: content, Timestamp: &now}
}

// NewSummaryMessage wraps summary text in the marker prefix and returns
// it as a system message.
func NewSummaryMessage(summary string) Message {
	return NewMessage(RoleSystem, SummaryPrefix+summary)
}

// EstimatedTokens approximates the token cost of the message content as
// ceil(len(content)/4). Estimates are heuristic; callers must not
// expect tokenizer-exact values.
func (m Message) EstimatedTokens() int {
	return (len(m.Content) + 3) / 4
}

// IsSummary reports whether the message was synthesized by a previous
// summarization pass.
func (m Message) IsSummary() bool {
	return m.Role == RoleSystem && strings.HasPrefix(m.Content, SummaryPrefix)
}

// SummaryText returns the summary body without the marker prefix, or
// the raw content when the message is not a summary.
func (m Message) SummaryText() string {
	return strings.TrimPrefix(m.Content, SummaryPrefix)
}

// Equal compares role and content only. Timestamps and names are
// ignored so a transcript resent by a client matches the stored copy.
func (m Message) Equal(other Message) bool {
	return m.Role == other.Role && m.Content == other.Content
}
