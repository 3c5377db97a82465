package model

import "time"

// Deal 交易线索记录，数值字段允许为空，展示时空值渲染为 N/A
type Deal struct {
	ID              string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Title           string    `gorm:"not null" json:"title"`
	Revenue         *float64  `json:"revenue"`
	EBITDA          *float64  `gorm:"column:ebitda;index" json:"ebitda"`
	EBITDAMargin    *float64  `gorm:"column:ebitda_margin" json:"ebitda_margin"`
	CompanyLocation string    `json:"company_location"`
	Industry        string    `json:"industry"`
}

func (Deal) TableName() string {
	return "deal"
}
