package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/medivuno/telehealth-server/internal/models"
)

// MessageStore persists direct messages between users.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *MessageStore) Get(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "message")
	}
	return &msg, nil
}

// ForUser returns the messages userID sent or received, oldest first. With
// otherID set only the conversation between the two is returned.
func (s *MessageStore) ForUser(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Preload("Sender").Preload("Receiver").Order("created_at asc")
	if otherID != "" {
		q = q.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID)
	} else {
		q = q.Where("sender_id = ? OR receiver_id = ?", userID, userID)
	}
	msgs := []models.Message{}
	err := q.Find(&msgs).Error
	return msgs, err
}

// Since returns messages involving userID created after since, newest first.
func (s *MessageStore) Since(ctx context.Context, userID string, since time.Time) ([]models.Message, error) {
	msgs := []models.Message{}
	err := s.db.WithContext(ctx).Preload("Sender").Preload("Receiver").
		Where("(receiver_id = ? OR sender_id = ?) AND created_at > ?", userID, userID, since.UTC()).
		Order("created_at desc").
		Find(&msgs).Error
	return msgs, err
}

// MarkReadFrom marks every unread message from senderID to receiverID read.
func (s *MessageStore) MarkReadFrom(ctx context.Context, receiverID, senderID string, now time.Time) error {
	q := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND status <> ?", receiverID, models.MessageStatusRead)
	if senderID != "" {
		q = q.Where("sender_id = ?", senderID)
	}
	return q.Updates(map[string]interface{}{"status": models.MessageStatusRead, "read_at": now.UTC()}).Error
}

// MarkRead marks one message read.
func (s *MessageStore) MarkRead(ctx context.Context, msg *models.Message, now time.Time) error {
	readAt := now.UTC()
	err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", msg.ID).
		Updates(map[string]interface{}{"status": models.MessageStatusRead, "read_at": readAt}).Error
	if err != nil {
		return err
	}
	msg.Status = models.MessageStatusRead
	msg.ReadAt = &readAt
	return nil
}

// Conversation is the latest exchange with one partner.
type Conversation struct {
	Partner     models.User
	LastMessage models.Message
	UnreadCount int64
}

// Conversations returns one entry per user that userID has exchanged messages
// with, most recent first.
func (s *MessageStore) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	db := s.db.WithContext(ctx)

	var partnerIDs []string
	err := db.Raw(`
		SELECT DISTINCT partner_id FROM (
			SELECT receiver_id AS partner_id FROM messages WHERE sender_id = ?
			UNION
			SELECT sender_id AS partner_id FROM messages WHERE receiver_id = ?
		) AS partners`, userID, userID).Scan(&partnerIDs).Error
	if err != nil {
		return nil, err
	}

	out := make([]Conversation, 0, len(partnerIDs))
	for _, partnerID := range partnerIDs {
		var conv Conversation
		if err := db.First(&conv.Partner, "id = ?", partnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		err := db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID).
			Order("created_at desc").
			First(&conv.LastMessage).Error
		if err != nil {
			return nil, err
		}
		err = db.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND status <> ?", partnerID, userID, models.MessageStatusRead).
			Count(&conv.UnreadCount).Error
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}
