package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedChatRequest struct {
	ConversationID    string `json:"conversation_id"`
	Message           string `json:"message"`
	HumanConfirmation *struct {
		ToolName  string         `json:"tool_name"`
		Input     map[string]any `json:"input"`
		Confirmed bool           `json:"confirmed"`
	} `json:"human_confirmation"`
}

// chatBackend 按脚本应答的假后端
type chatBackend struct {
	t *testing.T

	chatRequests []capturedChatRequest
	titlePuts    map[string]string

	// 每次普通轮推送的SSE事件脚本
	streamScript func(w http.ResponseWriter, req capturedChatRequest)

	// 确认轮应答
	confirmHandler func(w http.ResponseWriter, req capturedChatRequest)
}

func newChatBackend(t *testing.T) (*chatBackend, *httptest.Server) {
	b := &chatBackend{t: t, titlePuts: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req capturedChatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		b.chatRequests = append(b.chatRequests, req)

		if req.HumanConfirmation != nil {
			b.confirmHandler(w, req)
			return
		}
		b.streamScript(w, req)
	})
	mux.HandleFunc("/api/conversation/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)

		var body struct {
			Title string `json:"title"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		// /api/conversation/:id/title
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.Len(t, parts, 4)
		b.titlePuts[parts[2]] = body.Title
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return b, server
}

func writeSSEEvent(w http.ResponseWriter, event string, dataLines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprintf(w, "event:%s\n", event)
	for _, line := range dataLines {
		fmt.Fprintf(w, "data:%s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func TestSession_NormalTurnStreamsAndSurfacesToolRequest(t *testing.T) {
	backend, server := newChatBackend(t)
	backend.streamScript = func(w http.ResponseWriter, req capturedChatRequest) {
		writeSSEEvent(w, "answer", "I can query the database. ")
		writeSSEEvent(w, "tool_request", `{"toolName":"databaseQueryTool","input":{"minEbitda":1000000}}`)
		writeSSEEvent(w, "answer", "Reply to confirm.")
		writeSSEEvent(w, "done", `{"conversation_id":"conv-1"}`)
	}

	var answers []string
	session := NewSession(NewClient(server.URL, "test-token"))
	session.Events.OnAnswer = func(chunk string) { answers = append(answers, chunk) }

	outcome, err := session.Send(context.Background(), "find deals over 1m ebitda")
	require.NoError(t, err)

	assert.Equal(t, "I can query the database. Reply to confirm.", strings.Join(answers, ""))
	assert.Equal(t, outcome.Text, strings.Join(answers, ""))
	assert.Equal(t, "conv-1", session.ConversationID())

	require.NotNil(t, session.Pending())
	assert.Equal(t, "databaseQueryTool", session.Pending().ToolName)
	assert.Equal(t, StateAwaitingConfirmation, session.State())

	// 会话落地后同步派生标题
	assert.Equal(t, "find deals over 1m ebitda", backend.titlePuts["conv-1"])
}

func TestSession_ConfirmKeywordSendsConfirmedTurn(t *testing.T) {
	backend, server := newChatBackend(t)
	backend.streamScript = func(w http.ResponseWriter, req capturedChatRequest) {
		writeSSEEvent(w, "tool_request", `{"toolName":"databaseQueryTool","input":{"limit":3}}`)
		writeSSEEvent(w, "done", `{"conversation_id":"conv-1"}`)
	}
	backend.confirmHandler = func(w http.ResponseWriter, req capturedChatRequest) {
		require.True(t, req.HumanConfirmation.Confirmed)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"Found 1 deal(s):","toolResults":[{"result":{"deals":[{"id":"d1"}]}}]}`)
	}

	session := NewSession(NewClient(server.URL, "test-token"))
	_, err := session.Send(context.Background(), "query")
	require.NoError(t, err)
	require.NotNil(t, session.Pending())

	outcome, err := session.Send(context.Background(), "Yes, run it")
	require.NoError(t, err)

	assert.True(t, outcome.Executed)
	assert.Equal(t, "Found 1 deal(s):", outcome.Text)
	assert.JSONEq(t, `[{"id":"d1"}]`, string(outcome.Deals))
	assert.Nil(t, session.Pending())
	assert.Equal(t, StateIdle, session.State())

	// 回传的入参就是此前浮出展示的那一份
	last := backend.chatRequests[len(backend.chatRequests)-1]
	assert.Equal(t, "databaseQueryTool", last.HumanConfirmation.ToolName)
	assert.Equal(t, float64(3), last.HumanConfirmation.Input["limit"])
}

func TestSession_RejectKeywordSendsRejectedTurn(t *testing.T) {
	backend, server := newChatBackend(t)
	backend.streamScript = func(w http.ResponseWriter, req capturedChatRequest) {
		writeSSEEvent(w, "tool_request", `{"toolName":"databaseQueryTool","input":{}}`)
		writeSSEEvent(w, "done", `{"conversation_id":"conv-1"}`)
	}
	backend.confirmHandler = func(w http.ResponseWriter, req capturedChatRequest) {
		require.False(t, req.HumanConfirmation.Confirmed)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "Understood, I will not execute the query.")
	}

	session := NewSession(NewClient(server.URL, "test-token"))
	_, err := session.Send(context.Background(), "query")
	require.NoError(t, err)

	outcome, err := session.Send(context.Background(), "no, cancel that")
	require.NoError(t, err)

	assert.False(t, outcome.Executed)
	assert.Equal(t, "Understood, I will not execute the query.", outcome.Text)
	assert.Nil(t, session.Pending())
	assert.Equal(t, StateIdle, session.State())
}

func TestSession_AmbiguousTextLeavesPendingDangling(t *testing.T) {
	backend, server := newChatBackend(t)
	backend.streamScript = func(w http.ResponseWriter, req capturedChatRequest) {
		if len(backend.chatRequests) == 1 {
			writeSSEEvent(w, "tool_request", `{"toolName":"databaseQueryTool","input":{"limit":1}}`)
		} else {
			writeSSEEvent(w, "answer", "It searches the deal table.")
		}
		writeSSEEvent(w, "done", `{"conversation_id":"conv-1"}`)
	}

	session := NewSession(NewClient(server.URL, "test-token"))
	_, err := session.Send(context.Background(), "query")
	require.NoError(t, err)
	require.NotNil(t, session.Pending())

	// 既非确认也非拒绝，按普通轮发送，挂起请求原样保留
	outcome, err := session.Send(context.Background(), "what does this tool do?")
	require.NoError(t, err)

	assert.Equal(t, "It searches the deal table.", outcome.Text)
	require.NotNil(t, session.Pending())
	assert.Equal(t, float64(1), session.Pending().Input["limit"])
	assert.Equal(t, StateAwaitingConfirmation, session.State())

	last := backend.chatRequests[len(backend.chatRequests)-1]
	assert.Nil(t, last.HumanConfirmation)
	assert.Equal(t, "conv-1", last.ConversationID)
}

func TestSession_MarkerInAnswerStrippedClientSide(t *testing.T) {
	backend, server := newChatBackend(t)
	backend.streamScript = func(w http.ResponseWriter, req capturedChatRequest) {
		// 服务端未剥离标记时客户端兜底剥离
		writeSSEEvent(w, "answer", "Before. [HITL_REQUEST] {\"toolName\":\"databaseQueryTool\",\"input\":{\"limit\":2}}")
		writeSSEEvent(w, "answer", "")
		writeSSEEvent(w, "done", `{"conversation_id":"conv-1"}`)
	}

	session := NewSession(NewClient(server.URL, "test-token"))
	outcome, err := session.Send(context.Background(), "query")
	require.NoError(t, err)

	assert.NotContains(t, outcome.Text, "[HITL_REQUEST]")
	assert.NotContains(t, outcome.Text, "toolName")
	require.NotNil(t, session.Pending())
	assert.Equal(t, float64(2), session.Pending().Input["limit"])
}

func TestSession_StreamErrorEventReturnsError(t *testing.T) {
	backend, server := newChatBackend(t)
	backend.streamScript = func(w http.ResponseWriter, req capturedChatRequest) {
		writeSSEEvent(w, "answer", "partial")
		writeSSEEvent(w, "error", "error while processing chat turn")
	}

	session := NewSession(NewClient(server.URL, "test-token"))
	_, err := session.Send(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error while processing chat turn")
	assert.Equal(t, StateIdle, session.State())
}

func TestReadSSE_JoinsMultiLineData(t *testing.T) {
	stream := "event:answer\ndata:line one\ndata:line two\n\n"

	var events []SSEEvent
	err := ReadSSE(strings.NewReader(stream), func(ev SSEEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "answer", events[0].Event)
	assert.Equal(t, "line one\nline two", events[0].Data)
}

func TestReadSSE_DispatchesTrailingEventWithoutBlankLine(t *testing.T) {
	stream := "event:done\ndata:{}"

	var events []SSEEvent
	err := ReadSSE(strings.NewReader(stream), func(ev SSEEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "done", events[0].Event)
}
