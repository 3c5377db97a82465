package model

import (
	"encoding/json"
	"time"
)

// ConversationSnapshot 会话版本快照，在每轮对话落库后由 MQ 消费端异步写入
type ConversationSnapshot struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	ConversationID string          `gorm:"not null;index" json:"conversation_id"`
	Version        int             `gorm:"not null" json:"version"`
	Messages       json.RawMessage `gorm:"type:json" json:"messages"`
}

func (ConversationSnapshot) TableName() string {
	return "conversation_snapshot"
}
