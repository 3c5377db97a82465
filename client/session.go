package client

import (
	"context"
	"deal-agent-backend/model"
	"deal-agent-backend/service/chat"
	"deal-agent-backend/utils"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type State int

const (
	StateIdle State = iota
	StateStreamingAssistantReply
	StateAwaitingConfirmation
)

var confirmKeywords = []string{"yes", "run it", "execute"}
var rejectKeywords = []string{"no", "cancel", "reject"}

// TurnOutcome 一轮对话在客户端侧的结果
type TurnOutcome struct {
	// 本轮assistant可见文本（流式轮为各分片拼接结果）
	Text string

	// 确认执行后返回的结构化记录，供表格渲染
	Deals json.RawMessage

	// 本轮是否执行了工具
	Executed bool

	ConversationID string
}

// Events 流式过程回调，均可为 nil
type Events struct {
	OnAnswer      func(chunk string)
	OnToolRequest func(req chat.ToolRequest)
}

// Session 会话编排器状态机。挂起的工具请求只存在于客户端内存，
// 确认轮回传的就是此前浮出展示的那一份入参
type Session struct {
	Client *Client
	Events Events

	state          State
	conversationID string
	pending        *chat.ToolRequest
}

func NewSession(c *Client) *Session {
	return &Session{Client: c, state: StateIdle}
}

func (s *Session) State() State { return s.state }

func (s *Session) ConversationID() string { return s.conversationID }

// Pending 当前等待人工决策的工具请求，无则为 nil
func (s *Session) Pending() *chat.ToolRequest { return s.pending }

// Send 发送一条用户消息并推进状态机。
// 存在挂起工具请求时先按关键词归类：确认或拒绝走确认轮；
// 两者都不匹配则按普通轮发送，挂起请求保持原样
func (s *Session) Send(ctx context.Context, text string) (*TurnOutcome, error) {
	if s.pending != nil {
		if matchesKeyword(text, confirmKeywords) {
			return s.sendConfirmation(ctx, text, true)
		}
		if matchesKeyword(text, rejectKeywords) {
			return s.sendConfirmation(ctx, text, false)
		}
	}
	return s.sendNormalTurn(ctx, text)
}

func matchesKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type chatRequestBody struct {
	ConversationID    string             `json:"conversation_id,omitempty"`
	Message           string             `json:"message"`
	HumanConfirmation *humanConfirmation `json:"human_confirmation,omitempty"`
}

type humanConfirmation struct {
	ToolName  string         `json:"tool_name"`
	Input     map[string]any `json:"input"`
	Confirmed bool           `json:"confirmed"`
}

type toolResultEnvelope struct {
	Text        string `json:"text"`
	ToolResults []struct {
		Result struct {
			Deals json.RawMessage `json:"deals"`
		} `json:"result"`
	} `json:"toolResults"`
}

// sendConfirmation 发送确认轮。无论结果如何，挂起的工具请求都已决出
func (s *Session) sendConfirmation(ctx context.Context, text string, confirmed bool) (*TurnOutcome, error) {
	pending := s.pending

	resp, err := s.Client.PostChat(ctx, chatRequestBody{
		ConversationID: s.conversationID,
		Message:        text,
		HumanConfirmation: &humanConfirmation{
			ToolName:  pending.ToolName,
			Input:     pending.Input,
			Confirmed: confirmed,
		},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("confirmation turn returned status %d", resp.StatusCode)
	}

	s.pending = nil
	s.state = StateIdle

	if isJSONResponse(resp) {
		return s.readToolResult(resp.Body)
	}

	// 拒绝和执行异常走纯文本应答
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation response: %v", err)
	}
	return &TurnOutcome{
		Text:           string(body),
		ConversationID: s.conversationID,
	}, nil
}

// sendNormalTurn 发送普通轮并按Content-Type分流：
// 事件流按SSE消费，JSON按工具结果处理
func (s *Session) sendNormalTurn(ctx context.Context, text string) (*TurnOutcome, error) {
	resp, err := s.Client.PostChat(ctx, chatRequestBody{
		ConversationID: s.conversationID,
		Message:        text,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat turn returned status %d", resp.StatusCode)
	}

	if isJSONResponse(resp) {
		return s.readToolResult(resp.Body)
	}

	return s.consumeStream(ctx, resp.Body, text)
}

// consumeStream 消费SSE流。answer分片先过标记编解码器兜底剥离，
// 可见文本严格按到达顺序拼接；工具请求检出不打断流
func (s *Session) consumeStream(ctx context.Context, body io.Reader, userText string) (*TurnOutcome, error) {
	s.state = StateStreamingAssistantReply

	codec := chat.NewMarkerCodec()
	var visible strings.Builder
	var doneConversationID string
	var streamErr error

	setPending := func(req chat.ToolRequest) {
		if s.pending != nil && s.pending.Equal(req) {
			return
		}
		s.pending = &req
		if s.Events.OnToolRequest != nil {
			s.Events.OnToolRequest(req)
		}
	}

	emit := func(text string) {
		if text == "" {
			return
		}
		visible.WriteString(text)
		if s.Events.OnAnswer != nil {
			s.Events.OnAnswer(text)
		}
	}

	err := ReadSSE(body, func(ev SSEEvent) error {
		switch ev.Event {
		case utils.EventAnswer:
			text, requests := codec.Feed(ev.Data)
			emit(text)
			for _, req := range requests {
				setPending(req)
			}
		case utils.EventToolRequest:
			var req chat.ToolRequest
			if err := json.Unmarshal([]byte(ev.Data), &req); err != nil {
				return fmt.Errorf("failed to parse tool request event: %v", err)
			}
			setPending(req)
		case utils.EventError:
			streamErr = errors.New(ev.Data)
		case utils.EventDone:
			var done struct {
				ConversationID string `json:"conversation_id"`
			}
			if ev.Data != "" {
				if err := json.Unmarshal([]byte(ev.Data), &done); err == nil {
					doneConversationID = done.ConversationID
				}
			}
		}
		return nil
	})
	if err != nil {
		s.state = StateIdle
		return nil, err
	}
	if streamErr != nil {
		s.state = StateIdle
		return nil, fmt.Errorf("chat turn failed: %w", streamErr)
	}

	emit(codec.Flush())

	// 兜底路径：在累计文本上做宽松检测
	if req := chat.ScanLooseToolRequest(visible.String()); req != nil {
		setPending(*req)
	}

	s.finishTurn(ctx, doneConversationID, userText)

	return &TurnOutcome{
		Text:           visible.String(),
		ConversationID: s.conversationID,
	}, nil
}

// finishTurn 收尾一轮流式对话：记录新会话ID并同步派生标题，更新状态机
func (s *Session) finishTurn(ctx context.Context, doneConversationID, userText string) {
	if doneConversationID != "" && s.conversationID == "" {
		s.conversationID = doneConversationID

		title := model.DerivedTitle(userText)
		if err := s.Client.UpdateConversationTitle(ctx, s.conversationID, title); err != nil {
			slog.Warn("failed to sync conversation title",
				"conversation_id", s.conversationID,
				"err", err,
			)
		}
	}

	if s.pending != nil {
		s.state = StateAwaitingConfirmation
	} else {
		s.state = StateIdle
	}
}

func (s *Session) readToolResult(body io.Reader) (*TurnOutcome, error) {
	var envelope toolResultEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse tool result response: %v", err)
	}

	outcome := &TurnOutcome{
		Text:           envelope.Text,
		Executed:       true,
		ConversationID: s.conversationID,
	}
	if len(envelope.ToolResults) > 0 {
		outcome.Deals = envelope.ToolResults[0].Result.Deals
	}
	return outcome, nil
}

func isJSONResponse(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
}
