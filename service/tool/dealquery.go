package tool

import (
	"context"
	"deal-agent-backend/dao"
	"deal-agent-backend/model"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const DealQueryToolName = "databaseQueryTool"

const (
	queryErrorMessage    = "Error while executing query."
	noDealsFoundMessage  = "No deals found matching the specified criteria."
	foundDealsMessageFmt = "Found %d deal(s) matching your criteria."
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OperatorFilter 带操作符的数值筛选。greaterThan/lessThan/equals 需要 value，
// between 需要 min 和 max；equals 是整体替换而非区间。
type OperatorFilter struct {
	Operator string   `json:"operator" validate:"required,oneof=greaterThan lessThan equals between > < ="`
	Value    *float64 `json:"value"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
}

func (f *OperatorFilter) validateShape(field string) error {
	switch f.Operator {
	case "between":
		if f.Min == nil || f.Max == nil {
			return fmt.Errorf("%s: operator between requires both min and max", field)
		}
	default:
		if f.Value == nil {
			return fmt.Errorf("%s: operator %s requires value", field, f.Operator)
		}
	}
	return nil
}

// toRange 将操作符筛选映射到查询区间。大于/小于按闭区间处理（>= / <=）
func (f *OperatorFilter) toRange() dao.NumericRange {
	switch f.Operator {
	case "greaterThan", ">":
		return dao.NumericRange{Min: f.Value}
	case "lessThan", "<":
		return dao.NumericRange{Max: f.Value}
	case "equals", "=":
		return dao.NumericRange{Exact: f.Value}
	case "between":
		return dao.NumericRange{Min: f.Min, Max: f.Max}
	}
	return dao.NumericRange{}
}

// DealQueryInput 所有字段可选，空查询等价于"匹配所有（截断到limit）"。
// 数值字段同时支持结构化筛选对象和扁平 min/max 两种形态，
// 结构化筛选存在时完全遮蔽对应的扁平字段，不做合并。
type DealQueryInput struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	MinEBITDA       *float64 `json:"minEbitda"`
	MaxEBITDA       *float64 `json:"maxEbitda"`
	MinRevenue      *float64 `json:"minRevenue"`
	MaxRevenue      *float64 `json:"maxRevenue"`
	ExactRevenue    *float64 `json:"exactRevenue"`
	Location        string   `json:"location"`
	Industry        string   `json:"industry"`
	MinEBITDAMargin *float64 `json:"minEbitdaMargin"`
	MaxEBITDAMargin *float64 `json:"maxEbitdaMargin"`
	Limit           int      `json:"limit"`

	RevenueFilter      *OperatorFilter `json:"revenueFilter" validate:"omitempty"`
	EBITDAFilter       *OperatorFilter `json:"ebitdaFilter" validate:"omitempty"`
	EBITDAMarginFilter *OperatorFilter `json:"ebitdaMarginFilter" validate:"omitempty"`
}

// DealView 面向展示的投影，数值字段格式化为货币/百分比字符串，空值渲染为 N/A
type DealView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	EBITDA          string    `json:"ebitda"`
	Revenue         string    `json:"revenue"`
	CompanyLocation string    `json:"companyLocation"`
	EBITDAMargin    string    `json:"ebitdaMargin"`
	Industry        string    `json:"industry"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DealFinder 执行查询的后端，生产环境为 dao.FindDeals
type DealFinder func(ctx context.Context, q dao.DealQuery) ([]model.Deal, error)

type DealQueryTool struct {
	finder DealFinder
}

var _ Tool = &DealQueryTool{}

func NewDealQueryTool(finder DealFinder) *DealQueryTool {
	return &DealQueryTool{finder: finder}
}

func (t *DealQueryTool) Name() string {
	return DealQueryToolName
}

func (t *DealQueryTool) Description() string {
	return "Search for deal information in the database."
}

func (t *DealQueryTool) Call(ctx context.Context, input map[string]any) (*Result, error) {
	parsed, err := ParseDealQueryInput(input)
	if err != nil {
		return nil, err
	}

	deals, err := t.finder(ctx, BuildDealQuery(parsed))
	if err != nil {
		return &Result{
			Success: false,
			Message: queryErrorMessage,
			Error:   err.Error(),
			Deals:   []DealView{},
		}, nil
	}

	if len(deals) == 0 {
		return &Result{
			Success: false,
			Message: noDealsFoundMessage,
			Deals:   []DealView{},
		}, nil
	}

	views := make([]DealView, 0, len(deals))
	for _, deal := range deals {
		views = append(views, newDealView(deal))
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf(foundDealsMessageFmt, len(deals)),
		Count:   len(deals),
		Deals:   views,
	}, nil
}

// ParseDealQueryInput 解码并校验工具入参，校验失败直接拒绝执行
func ParseDealQueryInput(input map[string]any) (*DealQueryInput, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool input: %v", err)
	}

	parsed := &DealQueryInput{}
	if err := json.Unmarshal(data, parsed); err != nil {
		return nil, fmt.Errorf("invalid tool input: %v", err)
	}

	if err := validate.Struct(parsed); err != nil {
		return nil, fmt.Errorf("invalid tool input: %v", err)
	}

	for _, f := range []struct {
		name   string
		filter *OperatorFilter
	}{
		{"revenueFilter", parsed.RevenueFilter},
		{"ebitdaFilter", parsed.EBITDAFilter},
		{"ebitdaMarginFilter", parsed.EBITDAMarginFilter},
	} {
		if f.filter == nil {
			continue
		}
		if err := f.filter.validateShape(f.name); err != nil {
			return nil, fmt.Errorf("invalid tool input: %v", err)
		}
	}

	return parsed, nil
}

// BuildDealQuery 将两种入参形态归并为查询条件。
// 结构化筛选对象优先，存在时对应的扁平 min/max 字段整体忽略。
func BuildDealQuery(input *DealQueryInput) dao.DealQuery {
	q := dao.DealQuery{
		ID:       input.ID,
		Title:    input.Title,
		Location: input.Location,
		Industry: input.Industry,
		Limit:    input.Limit,
	}

	switch {
	case input.RevenueFilter != nil:
		q.Revenue = input.RevenueFilter.toRange()
	case input.ExactRevenue != nil:
		q.Revenue = dao.NumericRange{Exact: input.ExactRevenue}
	default:
		q.Revenue = dao.NumericRange{Min: input.MinRevenue, Max: input.MaxRevenue}
	}

	if input.EBITDAFilter != nil {
		q.EBITDA = input.EBITDAFilter.toRange()
	} else {
		q.EBITDA = dao.NumericRange{Min: input.MinEBITDA, Max: input.MaxEBITDA}
	}

	if input.EBITDAMarginFilter != nil {
		q.EBITDAMargin = input.EBITDAMarginFilter.toRange()
	} else {
		q.EBITDAMargin = dao.NumericRange{Min: input.MinEBITDAMargin, Max: input.MaxEBITDAMargin}
	}

	return q
}

func newDealView(deal model.Deal) DealView {
	return DealView{
		ID:              deal.ID,
		Title:           deal.Title,
		EBITDA:          formatCurrency(deal.EBITDA),
		Revenue:         formatCurrency(deal.Revenue),
		CompanyLocation: valueOrNA(deal.CompanyLocation),
		EBITDAMargin:    formatPercent(deal.EBITDAMargin),
		Industry:        valueOrNA(deal.Industry),
		CreatedAt:       deal.CreatedAt,
	}
}
