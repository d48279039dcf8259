package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen  = 36
	DefaultDisplayName = "Guest"
)

var ErrNameTooLong = errors.New("display name too long")

type ParticipantID string

// Identity distinguishes registered users from anonymous guests.
// The zero value is anonymous.
type Identity struct {
	UserID string
}

func (i Identity) Anonymous() bool { return i.UserID == "" }

// LocalParticipant is this client's identity within the meeting.
// The ID is client-generated and stable for the connection lifetime.
type LocalParticipant struct {
	ID       ParticipantID `json:"id"`
	Name     string        `json:"name"`
	Identity Identity      `json:"-"`
}

// NewLocalParticipant is a tiny helper to avoid ad-hoc struct literals
// in adapters. An empty name falls back to the default.
func NewLocalParticipant(name string) (*LocalParticipant, error) {
	if name == "" {
		name = DefaultDisplayName
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &LocalParticipant{ID: ParticipantID(uuid.NewString()), Name: name}, nil
}

// Participant is a roster row from the shared store. A non-nil LeftAt
// marks departure; the active roster is exactly the rows with LeftAt nil,
// ordered by JoinedAt ascending.
type Participant struct {
	ID        ParticipantID `json:"id"`
	MeetingID MeetingID     `json:"meeting_id"`
	Name      string        `json:"name"`
	UserID    *string       `json:"user_id,omitempty"`
	JoinedAt  time.Time     `json:"joined_at"`
	LeftAt    *time.Time    `json:"left_at,omitempty"`
}

func (p *Participant) Active() bool { return p.LeftAt == nil }
