package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/sakany/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository persists messages and conversations.
type ChatRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	// MessagesBetween returns messages exchanged by a and b in either
	// direction, oldest first. afterID and limit page through history; zero
	// values return everything.
	MessagesBetween(ctx context.Context, a, b uint, afterID uint, limit int) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, senderID, receiverID uint) (int64, error)
	// UpsertConversation finds or creates the conversation of the unordered
	// pair {a, b} in one atomic step and moves its last activity forward to at.
	UpsertConversation(ctx context.Context, a, b uint, at time.Time) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, id uint) (*models.Conversation, error)
	ConversationsForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
}

type chatRepo struct {
	DB *gorm.DB
}

func NewChatRepo(db *GormDB) ChatRepository {
	return &chatRepo{db.DB}
}

func (r *chatRepo) CreateMessage(ctx context.Context, message *models.Message) error {
	if err := r.DB.WithContext(ctx).Create(message).Error; err != nil {
		return errors.Wrap(err, "creating message")
	}
	return nil
}

func (r *chatRepo) MessagesBetween(ctx context.Context, a, b uint, afterID uint, limit int) ([]models.Message, error) {
	query := r.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	query = query.Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	return messages, nil
}

func (r *chatRepo) MarkMessagesRead(ctx context.Context, senderID, receiverID uint) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "marking messages read")
	}
	return result.RowsAffected, nil
}

func (r *chatRepo) UpsertConversation(ctx context.Context, a, b uint, at time.Time) (*models.Conversation, error) {
	low, high := models.OrderedPair(a, b)
	conversation := models.Conversation{UserLowID: low, UserHighID: high, LastMessageAt: at}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
		DoUpdates: clause.Set{{
			Column: clause.Column{Name: "last_message_at"},
			Value:  gorm.Expr("GREATEST(conversations.last_message_at, EXCLUDED.last_message_at)"),
		}},
	}).Create(&conversation).Error
	if err != nil {
		return nil, errors.Wrap(err, "upserting conversation")
	}

	var stored models.Conversation
	err = r.DB.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		First(&stored).Error
	if err != nil {
		return nil, wrapNotFound(err, "conversation")
	}
	return &stored, nil
}

func (r *chatRepo) FindConversationByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.DB.WithContext(ctx).First(&conversation, id).Error; err != nil {
		return nil, wrapNotFound(err, "conversation")
	}
	return &conversation, nil
}

func (r *chatRepo) ConversationsForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.DB.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("last_message_at DESC").Order("id DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing conversations")
	}
	return conversations, nil
}
