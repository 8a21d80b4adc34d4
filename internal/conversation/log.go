package conversation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kieran/voicechat/internal/model/chat"
)

// Log is the client-side, append-only record of a conversation. Insertion
// order is render order.
type Log struct {
	mu       sync.RWMutex
	messages []chat.Message
}

func NewLog() *Log {
	return &Log{}
}

// Append adds a user turn followed by its assistant reply.
func (l *Log) Append(user, assistant chat.Message) error {
	if err := (chat.Exchange{UserMessage: user, AssistantMessage: assistant}).Validate(); err != nil {
		return fmt.Errorf("cannot append exchange: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, user, assistant)
	return nil
}

// Messages returns a copy of every message in order.
func (l *Log) Messages() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]chat.Message(nil), l.messages...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// LastReply returns the most recent assistant message.
func (l *Log) LastReply() (chat.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == chat.RoleAssistant {
			return l.messages[i], true
		}
	}
	return chat.Message{}, false
}

// Transcript renders the log as plain text, one "role: content" line per message.
func (l *Log) Transcript() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	for _, m := range l.messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
