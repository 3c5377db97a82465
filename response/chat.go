package response

// ChatToolResponse 确认轮（confirmed）的非流式响应，
// toolResults 的嵌套结构供前端表格和图表渲染复用
type ChatToolResponse struct {
	Text        string       `json:"text"`
	ToolResults []ToolResult `json:"toolResults"`
}

type ToolResult struct {
	Result ToolResultPayload `json:"result"`
}

type ToolResultPayload struct {
	Deals any `json:"deals"`
}
