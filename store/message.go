package store

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func (r MessageRole) IsValid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

type Message struct {
	ID             int32
	UID            string
	ConversationID int32
	Role           MessageRole
	Content        string
	// Model tags assistant messages with the model that produced them.
	Model string
	// CreatedTs is in unix milliseconds. Drivers keep it strictly increasing
	// per conversation, so it alone defines message order.
	CreatedTs int64
}

type FindMessage struct {
	ID             *int32
	ConversationID *int32
	// Limit caps the number of rows; 0 means no limit.
	Limit int
	// NewestFirst orders by created_ts descending. Combined with Limit it
	// selects the most recent window.
	NewestFirst bool
}
