package chat

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
)

const markerTag = "[HITL_REQUEST]"

// 标记 = 字面量标签 + JSON对象 + 可选换行。非贪婪匹配到首个能终结对象的右花括号
var hitlMarkerRegex = regexp.MustCompile(`\[HITL_REQUEST\]\s*(\{[\s\S]*?\})(?:\n|$)`)

// 裸JSON回退检测用，贪婪匹配
var looseJSONRegex = regexp.MustCompile(`\{[\s\S]*\}`)

// ToolRequest 流中检出的工具请求
type ToolRequest struct {
	ToolName string         `json:"toolName"`
	Input    map[string]any `json:"input"`
}

// Equal 相同载荷的重复检出是幂等的
func (r ToolRequest) Equal(other ToolRequest) bool {
	return r.ToolName == other.ToolName && reflect.DeepEqual(r.Input, other.Input)
}

// MarkerCodec 从增量文本流中提取内嵌控制标记。
// 分片在一个持久缓冲区中累积，标记跨分片到达也能完整识别；
// 已识别的标记span从可见文本中整体剔除，其余文本每次Feed即时放行，
// 仅保留可能是截断标记前缀的尾部，保证标签和JSON载荷永远不会泄漏给用户。
type MarkerCodec struct {
	buf string
}

func NewMarkerCodec() *MarkerCodec {
	return &MarkerCodec{}
}

// Feed 追加一个分片，返回本次可安全下发的可见文本和检出的工具请求
func (c *MarkerCodec) Feed(chunk string) (string, []ToolRequest) {
	c.buf += chunk

	var requests []ToolRequest
	for {
		loc := hitlMarkerRegex.FindStringSubmatchIndex(c.buf)
		if loc == nil {
			break
		}

		payload := c.buf[loc[2]:loc[3]]
		var req ToolRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil || req.ToolName == "" || req.Input == nil {
			if loc[1] == len(c.buf) {
				// span到达缓冲区末尾，JSON可能被分片截断，留待后续分片补全
				break
			}
			// span已被换行终结但内容非法，静默丢弃，不影响流的其余部分
			slog.Debug("discarding malformed tool request marker", "payload", payload)
			c.buf = c.buf[:loc[0]] + c.buf[loc[1]:]
			continue
		}

		requests = append(requests, req)
		c.buf = c.buf[:loc[0]] + c.buf[loc[1]:]
	}

	return c.cut(), requests
}

// Flush 流结束后放行缓冲区剩余内容。未补全的标记此时按普通文本噪声处理
func (c *MarkerCodec) Flush() string {
	rest := c.buf
	c.buf = ""
	return rest
}

// cut 切出可安全下发的前缀。缓冲区中存在未完结的标记（或疑似标签前缀的尾部）时，
// 从该位置起保留，其余即时放行
func (c *MarkerCodec) cut() string {
	if idx := strings.Index(c.buf, markerTag); idx >= 0 {
		visible := c.buf[:idx]
		c.buf = c.buf[idx:]
		return visible
	}

	keep := tagPrefixLen(c.buf)
	visible := c.buf[:len(c.buf)-keep]
	c.buf = c.buf[len(c.buf)-keep:]
	return visible
}

// tagPrefixLen 返回 s 的最长后缀长度，该后缀是标签的真前缀
func tagPrefixLen(s string) int {
	max := len(markerTag) - 1
	if len(s) < max {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, markerTag[:n]) {
			return n
		}
	}
	return 0
}

// ScanLooseToolRequest 在累计文本中检测不带标签的裸JSON工具请求。
// 这是针对模型偏离标记格式的兜底路径，只检测不剔除，
// 与严格标签路径的重复检出由挂起状态设置方幂等消化
func ScanLooseToolRequest(text string) *ToolRequest {
	if !strings.Contains(text, `"toolName"`) || !strings.Contains(text, `"input"`) {
		return nil
	}

	match := looseJSONRegex.FindString(text)
	if match == "" {
		return nil
	}

	var req ToolRequest
	if err := json.Unmarshal([]byte(match), &req); err != nil || req.ToolName == "" || req.Input == nil {
		return nil
	}
	return &req
}
