package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkerText = "Sure, here is the query.\n" +
	"[HITL_REQUEST] {\"toolName\":\"databaseQueryTool\",\"input\":{\"minEbitda\":1000000,\"limit\":5}}\n" +
	"Reply to confirm."

func TestMarkerCodec_SingleChunk(t *testing.T) {
	codec := NewMarkerCodec()

	visible, requests := codec.Feed(sampleMarkerText)
	visible += codec.Flush()

	require.Len(t, requests, 1)
	assert.Equal(t, "databaseQueryTool", requests[0].ToolName)
	assert.Equal(t, float64(1000000), requests[0].Input["minEbitda"])
	assert.Equal(t, float64(5), requests[0].Input["limit"])

	assert.NotContains(t, visible, "[HITL_REQUEST]")
	assert.NotContains(t, visible, "toolName")
	assert.Contains(t, visible, "Sure, here is the query.")
	assert.Contains(t, visible, "Reply to confirm.")
}

// Splitting the same stream at every byte boundary must never leak any part
// of the marker, and exactly one request must be detected each time.
func TestMarkerCodec_SplitAtEveryBoundary(t *testing.T) {
	for i := 0; i <= len(sampleMarkerText); i++ {
		codec := NewMarkerCodec()
		var visible strings.Builder
		var requests []ToolRequest

		for _, chunk := range []string{sampleMarkerText[:i], sampleMarkerText[i:]} {
			text, reqs := codec.Feed(chunk)
			visible.WriteString(text)
			requests = append(requests, reqs...)
		}
		visible.WriteString(codec.Flush())

		require.Len(t, requests, 1, "split at %d", i)
		assert.Equal(t, "databaseQueryTool", requests[0].ToolName)

		out := visible.String()
		assert.NotContains(t, out, "[HITL_REQUEST]", "split at %d", i)
		assert.NotContains(t, out, "toolName", "split at %d", i)
		assert.Contains(t, out, "Sure, here is the query.", "split at %d", i)
		assert.Contains(t, out, "Reply to confirm.", "split at %d", i)
	}
}

func TestMarkerCodec_ManySmallChunks(t *testing.T) {
	codec := NewMarkerCodec()
	var visible strings.Builder
	var requests []ToolRequest

	for _, r := range sampleMarkerText {
		text, reqs := codec.Feed(string(r))
		visible.WriteString(text)
		requests = append(requests, reqs...)
	}
	visible.WriteString(codec.Flush())

	require.Len(t, requests, 1)
	assert.NotContains(t, visible.String(), "[HITL_REQUEST]")
	assert.NotContains(t, visible.String(), "input")
}

func TestMarkerCodec_MalformedPayloadDiscarded(t *testing.T) {
	codec := NewMarkerCodec()

	visible, requests := codec.Feed("before [HITL_REQUEST] {not valid json}\nafter")
	visible += codec.Flush()

	assert.Empty(t, requests)
	assert.Equal(t, "before after", visible)
}

func TestMarkerCodec_PayloadMissingToolNameDiscarded(t *testing.T) {
	codec := NewMarkerCodec()

	visible, requests := codec.Feed("[HITL_REQUEST] {\"input\":{\"limit\":1}}\ndone")
	visible += codec.Flush()

	assert.Empty(t, requests)
	assert.Equal(t, "done", visible)
}

func TestMarkerCodec_IncompleteMarkerHeldUntilFlush(t *testing.T) {
	codec := NewMarkerCodec()

	visible, requests := codec.Feed("answer text [HITL_REQUEST] {\"toolName\":")

	assert.Empty(t, requests)
	assert.Equal(t, "answer text ", visible)

	// 流结束，未补全的标记按普通文本放行
	assert.Equal(t, "[HITL_REQUEST] {\"toolName\":", codec.Flush())
}

func TestMarkerCodec_TagPrefixHeldBack(t *testing.T) {
	codec := NewMarkerCodec()

	visible, requests := codec.Feed("hello [HITL_REQ")
	assert.Empty(t, requests)
	assert.Equal(t, "hello ", visible)

	visible, requests = codec.Feed("UEST] {\"toolName\":\"databaseQueryTool\",\"input\":{}}\n")
	require.Len(t, requests, 1)
	assert.Empty(t, visible)
}

func TestMarkerCodec_MultipleMarkers(t *testing.T) {
	codec := NewMarkerCodec()

	text := "[HITL_REQUEST] {\"toolName\":\"databaseQueryTool\",\"input\":{\"limit\":1}}\n" +
		"middle\n" +
		"[HITL_REQUEST] {\"toolName\":\"databaseQueryTool\",\"input\":{\"limit\":2}}\n"
	visible, requests := codec.Feed(text)
	visible += codec.Flush()

	require.Len(t, requests, 2)
	assert.Equal(t, float64(1), requests[0].Input["limit"])
	assert.Equal(t, float64(2), requests[1].Input["limit"])
	assert.Equal(t, "middle\n", visible)
}

func TestScanLooseToolRequest(t *testing.T) {
	req := ScanLooseToolRequest(`{"toolName":"databaseQueryTool","input":{"location":"Texas"}}`)
	require.NotNil(t, req)
	assert.Equal(t, "databaseQueryTool", req.ToolName)
	assert.Equal(t, "Texas", req.Input["location"])

	assert.Nil(t, ScanLooseToolRequest("plain answer text"))
	assert.Nil(t, ScanLooseToolRequest(`{"toolName":"x"}`))
	assert.Nil(t, ScanLooseToolRequest(`"toolName" and "input" mentioned, but no JSON object`))
}

func TestToolRequestEqual(t *testing.T) {
	a := ToolRequest{ToolName: "databaseQueryTool", Input: map[string]any{"limit": float64(5)}}
	b := ToolRequest{ToolName: "databaseQueryTool", Input: map[string]any{"limit": float64(5)}}
	c := ToolRequest{ToolName: "databaseQueryTool", Input: map[string]any{"limit": float64(6)}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
