package dao

import (
	"context"
	"deal-agent-backend/model"

	"gorm.io/gorm"
)

const DefaultDealQueryLimit = 10

// NumericRange 数值字段筛选条件，Exact 与 Min/Max 互斥，Exact 优先
type NumericRange struct {
	Min   *float64
	Max   *float64
	Exact *float64
}

// DealQuery 交易筛选条件，零值字段不参与过滤
type DealQuery struct {
	ID           string
	Title        string
	Location     string
	Industry     string
	Revenue      NumericRange
	EBITDA       NumericRange
	EBITDAMargin NumericRange
	Limit        int
}

// FindDeals 按筛选条件查询交易，按 EBITDA 降序截断到 Limit。
// 子串匹配依赖 MySQL utf8mb4 默认排序规则的大小写不敏感行为。
func FindDeals(ctx context.Context, q DealQuery) ([]model.Deal, error) {
	db := DB.WithContext(ctx).Model(&model.Deal{})

	if q.ID != "" {
		db = db.Where("id = ?", q.ID)
	}
	if q.Title != "" {
		db = db.Where("title LIKE ?", "%"+q.Title+"%")
	}
	if q.Location != "" {
		db = db.Where("company_location LIKE ?", "%"+q.Location+"%")
	}
	if q.Industry != "" {
		db = db.Where("industry LIKE ?", "%"+q.Industry+"%")
	}

	db = applyNumericRange(db, "revenue", q.Revenue)
	db = applyNumericRange(db, "ebitda", q.EBITDA)
	db = applyNumericRange(db, "ebitda_margin", q.EBITDAMargin)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultDealQueryLimit
	}

	var deals []model.Deal
	if err := db.Order("ebitda DESC").
		Limit(limit).
		Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

func applyNumericRange(db *gorm.DB, column string, r NumericRange) *gorm.DB {
	if r.Exact != nil {
		return db.Where(column+" = ?", *r.Exact)
	}
	if r.Min != nil {
		db = db.Where(column+" >= ?", *r.Min)
	}
	if r.Max != nil {
		db = db.Where(column+" <= ?", *r.Max)
	}
	return db
}
