package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sim-ashish/chat-service/internal/model"
	"gorm.io/gorm"
)

// DefaultHistoryLimit caps how many recent messages a history query returns.
const DefaultHistoryLimit = 100

// History is the message persistence surface consumed by the WebSocket
// handler and the notification bridge.
type History interface {
	Append(ctx context.Context, msg model.Message) (model.Message, error)
	List(ctx context.Context, limit int) ([]model.Message, error)
}

// HistoryService persists chat records and serves recent history.
type HistoryService struct {
	db    *gorm.DB
	limit int
}

// NewHistoryService creates a history service. limit <= 0 falls back to
// DefaultHistoryLimit.
func NewHistoryService(db *gorm.DB, limit int) *HistoryService {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryService{db: db, limit: limit}
}

// Append durably stores the message and returns it with ID and timestamps set.
func (s *HistoryService) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	now := time.Now().UTC()
	ent := &model.ChatMessage{
		ID:        uuid.New().String(),
		Text:      msg.Text,
		UserEmail: msg.User,
		GroupID:   msg.GroupID,
		Type:      string(msg.Type),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(ent).Error; err != nil {
		return model.Message{}, err
	}
	return entityToMessage(ent), nil
}

// List returns up to limit most recent messages, newest first. limit <= 0 or
// above the configured cap uses the cap.
func (s *HistoryService) List(ctx context.Context, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	var ents []model.ChatMessage
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&ents).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(ents))
	for i := range ents {
		out = append(out, entityToMessage(&ents[i]))
	}
	return out, nil
}

func entityToMessage(ent *model.ChatMessage) model.Message {
	return model.Message{
		ID:        ent.ID,
		Text:      ent.Text,
		User:      ent.UserEmail,
		GroupID:   ent.GroupID,
		Type:      model.MessageType(ent.Type),
		CreatedAt: ent.CreatedAt,
		UpdatedAt: ent.UpdatedAt,
	}
}
