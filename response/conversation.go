package response

import (
	"encoding/json"
	"time"
)

type ConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

type GetConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type MessageResponse struct {
	CreatedAt       time.Time       `json:"created_at"`
	Role            string          `json:"role"`
	Content         string          `json:"content"`
	ToolCallResults json.RawMessage `json:"tool_call_results"`
}

type GetConversationMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type UserAuthResponse struct {
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Token  string `json:"token"`
}
