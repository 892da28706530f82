package models

// Message types.
const (
	MessageGroup   = "group"
	MessagePrivate = "private"
)

// Message is one chat message, either within a group or between two
// users. Delivery is plain fetch; there is no real-time transport.
type Message struct {
	ID          string
	SenderID    string
	Type        string
	GroupID     string // set for group messages
	RecipientID string // set for private messages
	Content     string
	CreatedAt   int64
}
