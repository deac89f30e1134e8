package model

import "time"

// ChatMessage is the persisted chat record (GORM).
type ChatMessage struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Text      string    `gorm:"type:text;not null"`
	UserEmail string    `gorm:"column:user_email;size:255;not null;index"`
	GroupID   int64     `gorm:"column:group_id;not null;index"`
	Type      string    `gorm:"size:20;not null;default:message"` // message, add, leave
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
