package document

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"deal-agent-backend/config"
	"deal-agent-backend/dao"
	"deal-agent-backend/model"
	"deal-agent-backend/request"
	"deal-agent-backend/response"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

const (
	policyExpire       = 10 * time.Minute
	presignedURLExpire = 15 * time.Minute
	maxUploadSizeBytes = 50 << 20
)

func newOSSClient() *oss.Client {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	return oss.NewClient(cfg)
}

// ObjectName 文件在OSS上的完整路径，不包含bucket名称
func ObjectName(dealID, fileName string) string {
	return "deals/" + dealID + "/" + fileName
}

// GeneratePolicyToken 生成前端直传OSS所需的POST policy签名，上传目录按交易隔离
func GeneratePolicyToken(dealID string) (*response.PolicyTokenResponse, error) {
	expire := time.Now().Add(policyExpire)
	dir := "deals/" + dealID + "/"

	policy := map[string]any{
		"expiration": expire.UTC().Format("2006-01-02T15:04:05.000Z"),
		"conditions": []any{
			[]any{"starts-with", "$key", dir},
			[]any{"content-length-range", 0, maxUploadSizeBytes},
		},
	}

	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post policy: %v", err)
	}

	encodedPolicy := base64.StdEncoding.EncodeToString(policyJSON)
	mac := hmac.New(sha1.New, []byte(config.Cfg.OSS.AccessKeySecret))
	mac.Write([]byte(encodedPolicy))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	host := fmt.Sprintf("https://%s.oss-%s.aliyuncs.com",
		config.Cfg.OSS.BucketName, config.Cfg.OSS.Region)

	return &response.PolicyTokenResponse{
		AccessKeyID: config.Cfg.OSS.AccessKeyID,
		Host:        host,
		Policy:      encodedPolicy,
		Signature:   signature,
		Dir:         dir,
		Expire:      expire.Unix(),
	}, nil
}

// GeneratePresignedURL 生成文件下载链接
func GeneratePresignedURL(ctx context.Context, objectName string) (string, error) {
	client := newOSSClient()
	result, err := client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	}, oss.PresignExpires(presignedURLExpire))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %v", objectName, err)
	}
	return result.URL, nil
}

// SaveDealDocument 前端将文件成功传输到OSS后记录元数据，同名文件拒绝
func SaveDealDocument(req request.UploadDealDocumentRequest, email string) error {
	existing, err := dao.GetDealDocumentByDealIDAndFileName(req.DealID, req.FileName)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("document %s already exists for deal %s", req.FileName, req.DealID)
	}

	return dao.SaveDealDocument(&model.DealDocument{
		DealID:     req.DealID,
		UserEmail:  email,
		FileName:   req.FileName,
		FileType:   model.FileType(req.FileType),
		FileSize:   req.FileSize,
		ObjectName: req.ObjectName,
		Status:     model.StatusUploaded,
	})
}

// DeleteDealDocument 删除元数据并同步删除OSS上的文件
func DeleteDealDocument(ctx context.Context, dealID, fileName string) error {
	if err := dao.DeleteDealDocument(dealID, fileName); err != nil {
		return err
	}

	client := newOSSClient()
	_, err := client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(ObjectName(dealID, fileName)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from oss: %v", err)
	}
	return nil
}
