package dao

import (
	"context"
	"deal-agent-backend/model"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func CreateConversation(email string) (*model.Conversation, error) {
	conversation := model.Conversation{
		UserEmail:      email,
		ConversationID: uuid.New().String(),
		Title:          model.DefaultConversationTitle,
	}
	if err := DB.Create(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func GetConversationsByEmail(email string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := DB.Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}
	return conversations, nil
}

func GetConversationByID(conversationID string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := DB.Where("conversation_id = ?", conversationID).
		First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

func DeleteConversation(email, conversationID string) error {
	// 删除会话
	err := DB.Where("user_email = ? AND conversation_id = ?", email, conversationID).
		Delete(&model.Conversation{}).Error
	if err != nil {
		return err
	}

	// 删除会话内的对话记录
	err = DB.Where("conversation_id = ?", conversationID).
		Delete(&[]model.Message{}).Error
	if err != nil {
		return err
	}

	return nil
}

func GetMessagesByConversationID(conversationID string) ([]model.Message, error) {
	var messages []model.Message
	if err := DB.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func GetMessageByID(messageID uint) (*model.Message, error) {
	var message model.Message
	if err := DB.Where("id = ?", messageID).
		First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func UpdateConversationTitle(email, conversationID, title string) error {
	err := DB.Model(&model.Conversation{}).
		Where("user_email = ? AND conversation_id = ?", email, conversationID).
		Update("title", title).Error
	if err != nil {
		return err
	}
	return nil
}

// TurnRecord 一轮对话落库后的记录
type TurnRecord struct {
	Conversation       *model.Conversation
	UserMessageID      uint
	AssistantMessageID uint
}

// AppendTurn 在一个事务内原子落库一轮对话（用户消息 + assistant 消息）。
// conversationID 为空时先创建会话；首轮对话落库时标题取首条消息的前30个字符。
// assistant 消息时间戳 = 用户消息时间戳 + 1ms，保证同一轮内消息的确定性排序。
func AppendTurn(ctx context.Context, email, conversationID, userText, assistantText string, toolCallResults json.RawMessage) (*TurnRecord, error) {
	record := &TurnRecord{}

	err := DB.Transaction(func(tx *gorm.DB) error {
		var conversation model.Conversation

		if conversationID == "" {
			conversation = model.Conversation{
				UserEmail:      email,
				ConversationID: uuid.New().String(),
				Title:          model.DerivedTitle(userText),
			}
			if err := tx.WithContext(ctx).Create(&conversation).Error; err != nil {
				return err
			}
		} else {
			if err := tx.WithContext(ctx).
				Where("conversation_id = ?", conversationID).
				First(&conversation).Error; err != nil {
				return err
			}

			var count int64
			if err := tx.WithContext(ctx).Model(&model.Message{}).
				Where("conversation_id = ?", conversation.ConversationID).
				Count(&count).Error; err != nil {
				return err
			}

			// 首轮对话，派生标题
			if count == 0 {
				conversation.Title = model.DerivedTitle(userText)
				if err := tx.WithContext(ctx).Model(&model.Conversation{}).
					Where("conversation_id = ?", conversation.ConversationID).
					Update("title", conversation.Title).Error; err != nil {
					return err
				}
			}
		}

		now := time.Now()
		userMessage := model.Message{
			ConversationID: conversation.ConversationID,
			Role:           model.RoleUser,
			Content:        userText,
			CreatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&userMessage).Error; err != nil {
			return err
		}

		assistantMessage := model.Message{
			ConversationID:  conversation.ConversationID,
			Role:            model.RoleAssistant,
			Content:         assistantText,
			ToolCallResults: toolCallResults,
			CreatedAt:       now.Add(time.Millisecond),
		}
		if err := tx.WithContext(ctx).Create(&assistantMessage).Error; err != nil {
			return err
		}

		record.Conversation = &conversation
		record.UserMessageID = userMessage.ID
		record.AssistantMessageID = assistantMessage.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}
