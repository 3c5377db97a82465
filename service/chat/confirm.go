package chat

import (
	"context"
	"deal-agent-backend/model"
	"deal-agent-backend/request"
	"deal-agent-backend/service/tool"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// 确认轮落库时使用的规范化用户消息
	ConfirmedUserMessage = "yes, run it"

	// 拒绝（含未注册工具）时的固定应答
	RejectionAcknowledgment = "Understood, I will not execute the query."

	// 工具执行异常时的应答
	ExecutionErrorText = "Sorry, I encountered an error while executing the database query."

	noDealsText = "No deals found matching your criteria."
)

// ConfirmationOutcome 确认轮的处理结果。
// Executed 为 true 时走非流式 JSON 通道返回表格数据，否则返回纯文本应答
type ConfirmationOutcome struct {
	Executed           bool
	Text               string
	Deals              []tool.DealView
	Conversation       *model.Conversation
	UserMessageID      uint
	AssistantMessageID uint
	Persisted          bool
}

// ConfirmationResolver 基于人工决策解决此前浮出的工具请求，不调用模型。
// 执行的工具入参就是展示给用户确认的那一份，不存在二次解读的偏差风险
type ConfirmationResolver struct {
	Registry *tool.Registry
	History  History
}

// Resolve 处理一次确认轮。未确认或工具未注册都按拒绝处理，工具一定不执行；
// 确认时入参按工具声明的schema校验，校验失败直接拒绝执行（fails closed）
func (r *ConfirmationResolver) Resolve(ctx context.Context, email, conversationID, userText string, hc request.HumanConfirmation) (*ConfirmationOutcome, error) {
	t, registered := r.Registry.Lookup(hc.ToolName)
	if !hc.Confirmed || !registered {
		outcome := &ConfirmationOutcome{Text: RejectionAcknowledgment}
		r.persistTurn(ctx, outcome, email, conversationID, userText, RejectionAcknowledgment, nil)
		return outcome, nil
	}

	result, err := t.Call(ctx, hc.Input)
	if err != nil {
		slog.Error("tool input rejected by schema validation",
			"tool", hc.ToolName,
			"err", err,
		)
		return &ConfirmationOutcome{Text: ExecutionErrorText}, nil
	}

	if !result.Success && result.Error != "" {
		slog.Error("tool execution failed",
			"tool", hc.ToolName,
			"tool_err", result.Error,
		)
		return &ConfirmationOutcome{Text: ExecutionErrorText}, nil
	}

	text := summarizeDeals(result.Deals)
	outcome := &ConfirmationOutcome{
		Executed: true,
		Text:     text,
		Deals:    result.Deals,
	}

	toolCallResults, err := encodeToolCallResults(hc.ToolName, result.Deals)
	if err != nil {
		slog.Error("failed to encode tool call results", "err", err)
	}
	r.persistTurn(ctx, outcome, email, conversationID, ConfirmedUserMessage, text, toolCallResults)

	return outcome, nil
}

// persistTurn 落库确认轮的消息对。流内容此前已送达客户端，失败只记录不回滚
func (r *ConfirmationResolver) persistTurn(ctx context.Context, outcome *ConfirmationOutcome, email, conversationID, userText, assistantText string, toolCallResults json.RawMessage) {
	if conversationID == "" {
		return
	}

	record, err := r.History.AppendTurn(ctx, email, conversationID, userText, assistantText, toolCallResults)
	if err != nil {
		slog.Error("failed to persist confirmation turn",
			"conversation_id", conversationID,
			"err", err,
		)
		return
	}

	outcome.Conversation = record.Conversation
	outcome.UserMessageID = record.UserMessageID
	outcome.AssistantMessageID = record.AssistantMessageID
	outcome.Persisted = true
}

// summarizeDeals 逐条罗列结果记录的关键字段，生成可读的汇总消息
func summarizeDeals(deals []tool.DealView) string {
	if len(deals) == 0 {
		return noDealsText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d deal(s):\n\n", len(deals))
	for i, deal := range deals {
		fmt.Fprintf(&b, "Deal %d: %s\n", i+1, deal.Title)
		fmt.Fprintf(&b, "- EBITDA: %s\n", deal.EBITDA)
		fmt.Fprintf(&b, "- Revenue: %s\n", deal.Revenue)
		fmt.Fprintf(&b, "- Location: %s\n", deal.CompanyLocation)
		fmt.Fprintf(&b, "- EBITDA Margin: %s\n\n", deal.EBITDAMargin)
	}
	return b.String()
}

func encodeToolCallResults(toolName string, deals []tool.DealView) (json.RawMessage, error) {
	dealsJSON, err := json.Marshal(deals)
	if err != nil {
		return nil, err
	}

	return json.Marshal([]model.ToolCallResult{
		{
			Name:   toolName,
			Result: dealsJSON,
		},
	})
}
