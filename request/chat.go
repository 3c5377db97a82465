package request

// HumanConfirmation 确认轮载荷，携带此前展示给用户的工具名和入参原样回传
type HumanConfirmation struct {
	ToolName  string         `json:"tool_name" binding:"required"`
	Input     map[string]any `json:"input" binding:"required"`
	Confirmed bool           `json:"confirmed"`
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required,min=1,max=2000"`

	// 存在时本轮为确认轮，不调用模型
	HumanConfirmation *HumanConfirmation `json:"human_confirmation"`
}
