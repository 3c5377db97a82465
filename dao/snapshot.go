package dao

import (
	"context"
	"deal-agent-backend/model"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// CreateConversationSnapshot 写入会话快照，版本号在事务内基于已有最大版本递增
func CreateConversationSnapshot(ctx context.Context, conversationID string, messages json.RawMessage) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		var latest model.ConversationSnapshot
		version := 1
		err := tx.WithContext(ctx).
			Where("conversation_id = ?", conversationID).
			Order("version DESC").
			First(&latest).Error
		if err == nil {
			version = latest.Version + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		snapshot := model.ConversationSnapshot{
			ConversationID: conversationID,
			Version:        version,
			Messages:       messages,
		}
		return tx.WithContext(ctx).Create(&snapshot).Error
	})
}
