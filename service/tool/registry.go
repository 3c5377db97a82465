package tool

import "context"

// Tool 需要人工确认后才会执行的具名工具，入参在 Call 内部按声明的schema校验。
// Call 返回 error 表示入参校验失败（直接拒绝执行）；执行期异常收敛进 Result。
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input map[string]any) (*Result, error)
}

// Result 工具调用结果。空结果与执行异常都视为不成功，
// 两者通过 Error 字段是否为空区分。
type Result struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Error   string     `json:"error,omitempty"`
	Count   int        `json:"count"`
	Deals   []DealView `json:"deals"`
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Lookup 按名称查找工具，未注册的工具一律不执行
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}
