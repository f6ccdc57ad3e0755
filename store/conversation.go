package store

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New Conversation"

type Conversation struct {
	ID        int32
	UID       string
	CreatorID int32
	Title     string
	// Summary is the rolling summary of the conversation, empty until the first fold.
	Summary      string
	MessageCount int32
	CreatedTs    int64
	UpdatedTs    int64
}

type FindConversation struct {
	ID        *int32
	UID       *string
	CreatorID *int32
}

type UpdateConversation struct {
	ID        int32
	Title     *string
	Summary   *string
	UpdatedTs *int64
}

// IncrementMessageCount bumps message_count by Delta in a single statement
// and touches updated_ts.
type IncrementMessageCount struct {
	ID        int32
	Delta     int32
	UpdatedTs int64
}
