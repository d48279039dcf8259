package domain

import "time"

type MessageID string

// Message is a chat row. Immutable once created; display order is
// CreatedAt ascending.
type Message struct {
	ID         MessageID `json:"id"`
	MeetingID  MeetingID `json:"meeting_id"`
	SenderID   *string   `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
