package entities

// ChatRole identifies the author of a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is a single turn in a chat session
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
