// Package transcript holds the live conversation turns reported by the voice gateway.
package transcript

import (
	"encoding/json"
	"strings"
)

// Role identifies who spoke one turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

// Turn is one utterance in chronological order.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts gateway turns that carry their words in "text"
// instead of "content".
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Text    string `json:"text"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Role = Role(strings.ToLower(strings.TrimSpace(raw.Role)))
	switch {
	case raw.Content != "":
		t.Content = raw.Content
	case raw.Text != "":
		t.Content = raw.Text
	default:
		t.Content = raw.Message
	}
	return nil
}

// Buffer is the ordered transcript for one activation. It is owned by the
// session loop and must not be shared across goroutines.
type Buffer struct {
	turns []Turn
}

// Replace swaps the buffer contents for turns. The gateway always sends the
// whole conversation so far, so the latest message wins.
func (b *Buffer) Replace(turns []Turn) {
	if len(turns) == 0 {
		b.turns = nil
		return
	}
	b.turns = append(make([]Turn, 0, len(turns)), turns...)
}

// Snapshot returns a copy of the current turns.
func (b *Buffer) Snapshot() []Turn {
	if len(b.turns) == 0 {
		return nil
	}
	return append(make([]Turn, 0, len(b.turns)), b.turns...)
}

// Len returns the number of turns held.
func (b *Buffer) Len() int {
	return len(b.turns)
}

// Empty reports whether no conversation has been captured.
func (b *Buffer) Empty() bool {
	return len(b.turns) == 0
}

// Reset clears all turns.
func (b *Buffer) Reset() {
	b.turns = nil
}

// Render joins turns as "role: content" lines for logs and debugging output.
func Render(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		content := strings.Join(strings.Fields(turn.Content), " ")
		if content == "" {
			continue
		}
		lines = append(lines, string(turn.Role)+": "+content)
	}
	return strings.Join(lines, "\n")
}
