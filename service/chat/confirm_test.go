package chat

import (
	"context"
	"deal-agent-backend/dao"
	"deal-agent-backend/model"
	"deal-agent-backend/request"
	"deal-agent-backend/service/tool"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type appendCall struct {
	email           string
	conversationID  string
	userText        string
	assistantText   string
	toolCallResults json.RawMessage
}

// fakeHistory 内存版会话历史，记录落库调用
type fakeHistory struct {
	prior      []llms.ChatMessage
	appends    []appendCall
	appendErr  error
	nextConvID string
}

func (h *fakeHistory) Messages(ctx context.Context, conversationID string) ([]llms.ChatMessage, error) {
	return h.prior, nil
}

func (h *fakeHistory) AppendTurn(ctx context.Context, email, conversationID, userText, assistantText string, toolCallResults json.RawMessage) (*dao.TurnRecord, error) {
	h.appends = append(h.appends, appendCall{
		email:           email,
		conversationID:  conversationID,
		userText:        userText,
		assistantText:   assistantText,
		toolCallResults: toolCallResults,
	})
	if h.appendErr != nil {
		return nil, h.appendErr
	}

	convID := conversationID
	if convID == "" {
		convID = h.nextConvID
	}
	return &dao.TurnRecord{
		Conversation:       &model.Conversation{ConversationID: convID},
		UserMessageID:      1,
		AssistantMessageID: 2,
	}, nil
}

// fakeTool 记录调用次数的假工具
type fakeTool struct {
	name    string
	result  *tool.Result
	callErr error
	calls   int
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "fake tool" }

func (t *fakeTool) Call(ctx context.Context, input map[string]any) (*tool.Result, error) {
	t.calls++
	if t.callErr != nil {
		return nil, t.callErr
	}
	return t.result, nil
}

func newResolver(t *fakeTool, h *fakeHistory) *ConfirmationResolver {
	return &ConfirmationResolver{
		Registry: tool.NewRegistry(t),
		History:  h,
	}
}

func TestConfirmationResolver_RejectedNeverExecutes(t *testing.T) {
	ft := &fakeTool{name: tool.DealQueryToolName}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "conv-1", "no, cancel that", request.HumanConfirmation{
		ToolName:  tool.DealQueryToolName,
		Input:     map[string]any{"limit": float64(5)},
		Confirmed: false,
	})
	require.NoError(t, err)

	assert.Zero(t, ft.calls)
	assert.False(t, outcome.Executed)
	assert.Equal(t, RejectionAcknowledgment, outcome.Text)
	assert.True(t, outcome.Persisted)

	// 拒绝轮落库的是用户的原话，不做规范化
	require.Len(t, history.appends, 1)
	assert.Equal(t, "no, cancel that", history.appends[0].userText)
	assert.Equal(t, RejectionAcknowledgment, history.appends[0].assistantText)
	assert.Nil(t, history.appends[0].toolCallResults)
}

func TestConfirmationResolver_UnknownToolTreatedAsRejection(t *testing.T) {
	ft := &fakeTool{name: tool.DealQueryToolName}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "conv-1", "yes", request.HumanConfirmation{
		ToolName:  "fileDeleteTool",
		Input:     map[string]any{},
		Confirmed: true,
	})
	require.NoError(t, err)

	assert.Zero(t, ft.calls)
	assert.False(t, outcome.Executed)
	assert.Equal(t, RejectionAcknowledgment, outcome.Text)
}

func TestConfirmationResolver_ConfirmedExecutesAndPersists(t *testing.T) {
	ft := &fakeTool{
		name: tool.DealQueryToolName,
		result: &tool.Result{
			Success: true,
			Count:   2,
			Deals: []tool.DealView{
				{ID: "d1", Title: "HVAC roll-up", EBITDA: "$1,500,000", Revenue: "$9,000,000", CompanyLocation: "Dallas, TX", EBITDAMargin: "16.7%"},
				{ID: "d2", Title: "Plumbing group", EBITDA: "$800,000", Revenue: "N/A", CompanyLocation: "N/A", EBITDAMargin: "N/A"},
			},
		},
	}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "conv-1", "sounds good", request.HumanConfirmation{
		ToolName:  tool.DealQueryToolName,
		Input:     map[string]any{"minEbitda": float64(500000)},
		Confirmed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ft.calls)
	assert.True(t, outcome.Executed)
	assert.Len(t, outcome.Deals, 2)
	assert.Contains(t, outcome.Text, "Found 2 deal(s):")
	assert.Contains(t, outcome.Text, "Deal 1: HVAC roll-up")
	assert.Contains(t, outcome.Text, "- EBITDA: $1,500,000")
	assert.Contains(t, outcome.Text, "Deal 2: Plumbing group")

	// 确认轮落库的用户消息是规范化文本
	require.Len(t, history.appends, 1)
	assert.Equal(t, ConfirmedUserMessage, history.appends[0].userText)
	assert.NotNil(t, history.appends[0].toolCallResults)

	var results []model.ToolCallResult
	require.NoError(t, json.Unmarshal(history.appends[0].toolCallResults, &results))
	require.Len(t, results, 1)
	assert.Equal(t, tool.DealQueryToolName, results[0].Name)
}

func TestConfirmationResolver_ZeroRowsStillExecuted(t *testing.T) {
	ft := &fakeTool{
		name:   tool.DealQueryToolName,
		result: &tool.Result{Success: false, Deals: []tool.DealView{}},
	}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "conv-1", "yes", request.HumanConfirmation{
		ToolName:  tool.DealQueryToolName,
		Input:     map[string]any{},
		Confirmed: true,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Executed)
	assert.Equal(t, "No deals found matching your criteria.", outcome.Text)
	assert.Empty(t, outcome.Deals)
}

func TestConfirmationResolver_ValidationErrorFailsClosed(t *testing.T) {
	ft := &fakeTool{
		name:    tool.DealQueryToolName,
		callErr: errors.New("invalid tool input"),
	}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "conv-1", "yes", request.HumanConfirmation{
		ToolName:  tool.DealQueryToolName,
		Input:     map[string]any{"revenueFilter": "garbage"},
		Confirmed: true,
	})
	require.NoError(t, err)

	assert.False(t, outcome.Executed)
	assert.Equal(t, ExecutionErrorText, outcome.Text)
	assert.Empty(t, history.appends)
}

func TestConfirmationResolver_ExecutionErrorNotPersisted(t *testing.T) {
	ft := &fakeTool{
		name:   tool.DealQueryToolName,
		result: &tool.Result{Success: false, Error: "connection refused"},
	}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "conv-1", "yes", request.HumanConfirmation{
		ToolName:  tool.DealQueryToolName,
		Input:     map[string]any{},
		Confirmed: true,
	})
	require.NoError(t, err)

	assert.False(t, outcome.Executed)
	assert.Equal(t, ExecutionErrorText, outcome.Text)
	assert.Empty(t, history.appends)
}

func TestConfirmationResolver_NoConversationSkipsPersist(t *testing.T) {
	ft := &fakeTool{name: tool.DealQueryToolName}
	history := &fakeHistory{}
	resolver := newResolver(ft, history)

	outcome, err := resolver.Resolve(context.Background(), "a@b.com", "", "no", request.HumanConfirmation{
		ToolName:  tool.DealQueryToolName,
		Input:     map[string]any{},
		Confirmed: false,
	})
	require.NoError(t, err)

	assert.False(t, outcome.Persisted)
	assert.Empty(t, history.appends)
}
