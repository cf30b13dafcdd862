package models

// Sender identifies which side of the conversation a message came from.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one entry in the stylist conversation. Messages are
// immutable once appended.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}
