package client

import (
	"bufio"
	"bytes"
	"context"
	"deal-agent-backend/utils"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client 封装后端HTTP接口的访问，供会话编排器使用
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: utils.NewHTTPClient(
			utils.WithTimeout(300 * time.Second),
		),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// PostChat 发起一轮对话请求，调用方按响应的Content-Type分流处理
func (c *Client) PostChat(ctx context.Context, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", body)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %v", err)
	}
	return resp, nil
}

// UpdateConversationTitle 同步会话标题
func (c *Client) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	path := "/api/conversation/" + conversationID + "/title"
	req, err := c.newRequest(ctx, http.MethodPut, path, map[string]string{"title": title})
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("title update request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("title update returned status %d", resp.StatusCode)
	}
	return nil
}

// SSEEvent 服务端推送的一条事件，Data 为多行data字段按换行拼接后的结果
type SSEEvent struct {
	Event string
	Data  string
}

// ReadSSE 逐条读取SSE流并回调处理，流结束（EOF）时正常返回。
// 多行 data 字段按规范以换行符拼接还原
func ReadSSE(body io.Reader, handle func(SSEEvent) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data []string

	dispatch := func() error {
		if event == "" && len(data) == 0 {
			return nil
		}
		err := handle(SSEEvent{
			Event: event,
			Data:  strings.Join(data, "\n"),
		})
		event = ""
		data = nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %v", err)
	}

	// 流在最后一个事件后直接关闭，无结尾空行
	return dispatch()
}
