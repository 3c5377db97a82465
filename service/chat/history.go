package chat

import (
	"context"
	"deal-agent-backend/dao"
	"deal-agent-backend/model"
	"encoding/json"

	"github.com/tmc/langchaingo/llms"
	"gorm.io/gorm"
)

const historyLimit = 200

// History 会话存储的最小契约：按序加载历史消息、按轮原子追加
type History interface {
	Messages(ctx context.Context, conversationID string) ([]llms.ChatMessage, error)
	AppendTurn(ctx context.Context, email, conversationID, userText, assistantText string, toolCallResults json.RawMessage) (*dao.TurnRecord, error)
}

// MySQLConversationHistory 基于 MySQL 的会话存储
type MySQLConversationHistory struct {
	DB    *gorm.DB
	Limit int
}

var _ History = &MySQLConversationHistory{}

func NewMySQLConversationHistory() *MySQLConversationHistory {
	return &MySQLConversationHistory{
		DB:    dao.DB,
		Limit: historyLimit,
	}
}

// Messages 按创建时间升序加载会话消息。优先选取消息摘要，为空时选取全量内容
func (h *MySQLConversationHistory) Messages(ctx context.Context, conversationID string) ([]llms.ChatMessage, error) {
	if conversationID == "" {
		return nil, nil
	}

	var messages []struct {
		Content string
		Summary string
		Role    string
	}

	result := h.DB.WithContext(ctx).
		Model(&model.Message{}).
		Select("content, summary, role").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(h.Limit).
		Find(&messages)

	if result.Error != nil {
		return nil, result.Error
	}

	var msgs []llms.ChatMessage
	for _, msg := range messages {
		var content string
		if msg.Summary != "" {
			content = msg.Summary
		} else {
			content = msg.Content
		}

		switch msg.Role {
		case model.RoleAssistant:
			msgs = append(msgs, llms.AIChatMessage{Content: content})
		case model.RoleUser:
			msgs = append(msgs, llms.HumanChatMessage{Content: content})
		}
	}

	return msgs, nil
}

func (h *MySQLConversationHistory) AppendTurn(ctx context.Context, email, conversationID, userText, assistantText string, toolCallResults json.RawMessage) (*dao.TurnRecord, error) {
	return dao.AppendTurn(ctx, email, conversationID, userText, assistantText, toolCallResults)
}
