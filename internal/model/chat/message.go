package chat

import "fmt"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation as exchanged with clients.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Exchange is the transcript-derived user turn followed by the model reply.
type Exchange struct {
	UserMessage      Message `json:"userMessage"`
	AssistantMessage Message `json:"assistantMessage"`
}

// NewExchange pairs a transcript with its reply.
func NewExchange(transcript, reply string) Exchange {
	return Exchange{
		UserMessage:      UserMessage(transcript),
		AssistantMessage: AssistantMessage(reply),
	}
}

// Validate checks the role of each side of the exchange.
func (e Exchange) Validate() error {
	if e.UserMessage.Role != RoleUser {
		return fmt.Errorf("user message has role %q", e.UserMessage.Role)
	}
	if e.AssistantMessage.Role != RoleAssistant {
		return fmt.Errorf("assistant message has role %q", e.AssistantMessage.Role)
	}
	return nil
}

// ErrorBody is the JSON body returned for failed requests.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
