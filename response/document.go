package response

type DealDocumentResponse struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

type GetDealDocumentsResponse struct {
	Documents []DealDocumentResponse `json:"documents"`
}

type GetPresignedURLResponse struct {
	URL string `json:"url"`
}

// PolicyTokenResponse 前端直传OSS所需的POST policy签名
type PolicyTokenResponse struct {
	AccessKeyID string `json:"access_key_id"`
	Host        string `json:"host"`
	Policy      string `json:"policy"`
	Signature   string `json:"signature"`
	Dir         string `json:"dir"`
	Expire      int64  `json:"expire"`
}
