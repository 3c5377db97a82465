package model

import (
	"encoding/json"
	"time"
)

const DefaultConversationTitle = "New Chat"

// TitleMaxLen 会话标题取首条消息的前 30 个字符
const TitleMaxLen = 30

type Conversation struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserEmail      string    `gorm:"not null;index" json:"user_email"`
	ConversationID string    `gorm:"not null;uniqueIndex" json:"conversation_id"`
	Title          string    `json:"title"`
}

func (Conversation) TableName() string {
	return "chat_conversation"
}

// Message 建立联合索引 (conversation_id, created_at)
type Message struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time       `gorm:"index:idx_conversation_created" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ConversationID  string          `gorm:"not null;index:idx_conversation_created" json:"conversation_id"`
	Role            string          `gorm:"not null" json:"role"`
	Content         string          `gorm:"type:text" json:"content"`
	ToolCallResults json.RawMessage `gorm:"type:json" json:"tool_call_results"`
	Summary         string          `gorm:"type:text" json:"summary"`
}

func (Message) TableName() string {
	return "chat_message"
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolCallResult 工具调用结果，作为附件挂在 assistant 消息上供前端渲染表格和图表
type ToolCallResult struct {
	Name string `json:"name"`

	// 每次工具调用返回一组结果记录
	Result json.RawMessage `json:"result"`
}

// DerivedTitle 根据会话首条消息派生标题
func DerivedTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > TitleMaxLen {
		runes = runes[:TitleMaxLen]
	}
	return string(runes)
}
