package model

import "time"

type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeMarkdown FileType = "md"
	FileTypeText     FileType = "txt"
)

type Status string

const (
	// 文件上传完成
	StatusUploaded Status = "UPLOADED"

	// 文件元数据删除后等待OSS清理
	StatusPendingCleanup Status = "PENDING_CLEANUP"
)

// DealDocument 交易附件元数据，文件本体由前端直传OSS
// 建立联合索引 (deal_id, created_at)
type DealDocument struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_deal_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	DealID    string    `gorm:"not null;index:idx_deal_created" json:"deal_id"`
	UserEmail string    `gorm:"not null;index" json:"user_email"`
	FileName  string    `gorm:"not null" json:"file_name"`
	FileType  FileType  `gorm:"not null" json:"file_type"`
	FileSize  int64     `gorm:"not null" json:"file_size"`

	// 文件在OSS上的完整路径，不包含bucket名称
	ObjectName string `gorm:"not null" json:"object_name"`

	Status Status `gorm:"not null;default:UPLOADED" json:"status"`
}

func (DealDocument) TableName() string {
	return "deal_document"
}
