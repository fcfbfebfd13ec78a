package chat

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleError Role = "error"
)

// Message is one displayed turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ModelMessage builds a model turn.
func ModelMessage(content string) Message {
	return Message{Role: RoleModel, Content: content}
}

// ErrorMessage builds an error turn.
func ErrorMessage(content string) Message {
	return Message{Role: RoleError, Content: content}
}
