package models

import (
	"time"
)

// Message is a single direct message between two users.
type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SenderID   uint      `json:"senderId" gorm:"not null;index:idx_messages_pair,priority:1"`
	ReceiverID uint      `json:"receiverId" gorm:"not null;index:idx_messages_pair,priority:2"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	IsRead     bool      `json:"isRead" gorm:"default:false"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

type SendMessageRequest struct {
	ReceiverID uint   `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

type MarkReadRequest struct {
	SenderID uint `json:"senderId" validate:"required"`
}
