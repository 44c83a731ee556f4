package models

import (
	"time"

	"gorm.io/gorm"
)

// Model is the common gorm base for soft-deletable records.
type Model struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Blacklist holds access tokens revoked on logout.
type Blacklist struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Token     string    `json:"token" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
}
