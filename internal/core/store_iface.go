package core

import (
	"context"
	"errors"
	"time"

	"github.com/meuser88/huddle/internal/domain"
)

var ErrMeetingNotFound = errors.New("meeting not found")

// MeetingStore is the shared row store the client reconciles against.
// Every write is an insert or a single-field update keyed by identity;
// the store is assumed to serialize concurrent writes at the row level.
type MeetingStore interface {
	// MeetingByCode resolves an access code case-insensitively.
	// Returns ErrMeetingNotFound if no row matches.
	MeetingByCode(ctx context.Context, code domain.AccessCode) (*domain.Meeting, error)

	InsertParticipant(ctx context.Context, p *domain.Participant) error
	// MarkParticipantLeft sets left_at on the participant row.
	MarkParticipantLeft(ctx context.Context, id domain.ParticipantID, at time.Time) error
	// ActiveParticipants returns rows with left_at null, joined_at ascending.
	ActiveParticipants(ctx context.Context, meeting domain.MeetingID) ([]domain.Participant, error)

	InsertMessage(ctx context.Context, m *domain.Message) error
	// Messages returns all rows for the meeting, created_at ascending.
	Messages(ctx context.Context, meeting domain.MeetingID) ([]domain.Message, error)
}
