package utils

import "github.com/gin-gonic/gin"

const (
	// 模型可见文本分片
	EventAnswer = "answer"

	// 流中检出的工具请求（侧信道，不混入可见文本）
	EventToolRequest = "tool_request"

	EventError = "error"
	EventDone  = "done"
)

func SetSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

func SendSSEMessage(c *gin.Context, event string, data any) {
	c.SSEvent(event, data)
	c.Writer.Flush()
}
