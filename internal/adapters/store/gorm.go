// Package store implements the shared row store on gorm/postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore { return &GormStore{db: db} }

// Connect opens the postgres connection and migrates the three tables.
func Connect(host, port, user, password, name string) (*GormStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, name,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := db.AutoMigrate(&Meeting{}, &Participant{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	log.Info().Str("module", "adapters.store").Msg("store connected")
	return New(db), nil
}

func (s *GormStore) MeetingByCode(ctx context.Context, code domain.AccessCode) (*domain.Meeting, error) {
	var row Meeting
	err := s.db.WithContext(ctx).
		Where("LOWER(access_code) = LOWER(?)", string(code)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrMeetingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.Meeting{
		ID:         domain.MeetingID(row.ID),
		AccessCode: domain.AccessCode(row.AccessCode),
		Title:      row.Title,
		HostName:   row.HostName,
	}, nil
}

func (s *GormStore) InsertParticipant(ctx context.Context, p *domain.Participant) error {
	row := Participant{
		ID:        string(p.ID),
		MeetingID: string(p.MeetingID),
		Name:      p.Name,
		UserID:    p.UserID,
		JoinedAt:  p.JoinedAt,
		LeftAt:    p.LeftAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) MarkParticipantLeft(ctx context.Context, id domain.ParticipantID, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&Participant{}).
		Where("id = ?", string(id)).
		Update("left_at", at).Error
}

func (s *GormStore) ActiveParticipants(ctx context.Context, meeting domain.MeetingID) ([]domain.Participant, error) {
	var rows []Participant
	err := s.db.WithContext(ctx).
		Where("meeting_id = ? AND left_at IS NULL", string(meeting)).
		Order("joined_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Participant{
			ID:        domain.ParticipantID(r.ID),
			MeetingID: domain.MeetingID(r.MeetingID),
			Name:      r.Name,
			UserID:    r.UserID,
			JoinedAt:  r.JoinedAt,
			LeftAt:    r.LeftAt,
		})
	}
	return out, nil
}

func (s *GormStore) InsertMessage(ctx context.Context, m *domain.Message) error {
	row := Message{
		ID:         string(m.ID),
		MeetingID:  string(m.MeetingID),
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) Messages(ctx context.Context, meeting domain.MeetingID) ([]domain.Message, error) {
	var rows []Message
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", string(meeting)).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Message{
			ID:         domain.MessageID(r.ID),
			MeetingID:  domain.MeetingID(r.MeetingID),
			SenderID:   r.SenderID,
			SenderName: r.SenderName,
			Content:    r.Content,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}
