package request

// UploadDealDocumentRequest 前端将文件直传OSS成功后回传的元数据
type UploadDealDocumentRequest struct {
	DealID     string `json:"deal_id" binding:"required"`
	FileName   string `json:"file_name" binding:"required"`
	FileType   string `json:"file_type" binding:"required,oneof=pdf md txt"`
	FileSize   int64  `json:"file_size" binding:"required,gt=0"`
	ObjectName string `json:"object_name" binding:"required"`
}
