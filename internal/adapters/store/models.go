package store

import "time"

// Row models for the shared store. Column names follow gorm defaults
// (meetings, participants, messages).

type Meeting struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	AccessCode string    `gorm:"size:12;uniqueIndex" json:"access_code"`
	Title      string    `gorm:"size:200" json:"title"`
	HostName   string    `gorm:"size:100" json:"host_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type Participant struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	MeetingID string     `gorm:"size:36;index" json:"meeting_id"`
	Name      string     `gorm:"size:100;not null" json:"name"`
	UserID    *string    `gorm:"size:36" json:"user_id,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `gorm:"index" json:"left_at,omitempty"`
}

type Message struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	MeetingID  string    `gorm:"size:36;index" json:"meeting_id"`
	SenderID   *string   `gorm:"size:36" json:"sender_id,omitempty"`
	SenderName string    `gorm:"size:100;not null" json:"sender_name"`
	Content    string    `gorm:"not null" json:"content"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
