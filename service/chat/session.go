package chat

import (
	"context"
	"deal-agent-backend/config"
	"deal-agent-backend/model"
	"deal-agent-backend/utils"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// 配置 300s 超时时间处理 LLM 流式输出
var llmHTTPClient *http.Client = utils.NewHTTPClient(
	utils.WithTimeout(300 * time.Second),
)

//go:embed prompts/system.txt
var systemPrompt string

// TurnCallbacks 流式回调。OnAnswer 按模型产出顺序接收可见文本分片；
// OnToolRequest 是挂起工具请求的侧信道，不混入可见文本
type TurnCallbacks struct {
	OnAnswer      func(chunk string)
	OnToolRequest func(req ToolRequest)
}

// TurnResult 一轮对话的结果。Persisted 为 false 表示流已送达但落库失败，
// 本轮内容只存在于客户端内存中（接受的不一致窗口，不重试）
type TurnResult struct {
	Conversation       *model.Conversation
	AssistantText      string
	PendingTool        *ToolRequest
	UserMessageID      uint
	AssistantMessageID uint
	Persisted          bool
}

// Turn 承载一次模型驱动的对话轮次
type Turn struct {
	LLM     llms.Model
	History History
}

func NewTurn(history History) (*Turn, error) {
	llm, err := openai.New(
		openai.WithModel(config.Cfg.Model.Name),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(llmHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %v", err)
	}

	return &Turn{
		LLM:     llm,
		History: history,
	}, nil
}

// Run 执行一轮普通对话：加载历史消息构建上下文，流式调用模型，
// 分片经标记编解码器多路分解为可见文本和工具请求，
// 流正常结束后将用户消息与assistant可见文本作为一对原子落库。
// 模型调用失败不落库；落库失败只记录（至多一次语义）。
func (t *Turn) Run(ctx context.Context, email, conversationID, message string, cb TurnCallbacks) (*TurnResult, error) {
	prior, err := t.History.Messages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation messages: %v", err)
	}

	msgs := make([]llms.MessageContent, 0, len(prior)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, m := range prior {
		msgs = append(msgs, llms.TextParts(m.GetType(), m.GetContent()))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, message))

	codec := NewMarkerCodec()
	var visible strings.Builder
	var pending *ToolRequest

	emit := func(text string) {
		if text == "" {
			return
		}
		visible.WriteString(text)
		if cb.OnAnswer != nil {
			cb.OnAnswer(text)
		}
	}

	// 重复检出同一载荷是无害的幂等操作，不同载荷则整体替换
	setPending := func(req ToolRequest) {
		if pending != nil && pending.Equal(req) {
			return
		}
		pending = &req
		if cb.OnToolRequest != nil {
			cb.OnToolRequest(req)
		}
	}

	_, err = t.LLM.GenerateContent(ctx, msgs,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			text, requests := codec.Feed(string(chunk))
			emit(text)
			for _, req := range requests {
				setPending(req)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("llm call error: %w", err)
	}

	emit(codec.Flush())

	// 兜底路径：模型输出裸JSON而未带标签时，在累计文本上做宽松检测
	if req := ScanLooseToolRequest(visible.String()); req != nil {
		setPending(*req)
	}

	result := &TurnResult{
		AssistantText: visible.String(),
		PendingTool:   pending,
	}

	record, err := t.History.AppendTurn(ctx, email, conversationID, message, visible.String(), nil)
	if err != nil {
		slog.Error("failed to persist chat turn",
			"conversation_id", conversationID,
			"err", err,
		)
		return result, nil
	}

	result.Conversation = record.Conversation
	result.UserMessageID = record.UserMessageID
	result.AssistantMessageID = record.AssistantMessageID
	result.Persisted = true
	return result, nil
}
