package uploader

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"flowmarket/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// 工作流文件允许的扩展名 (n8n/Zapier/Make 导出为 JSON，Airtable 脚本为 JS，打包为 ZIP)
var allowedExtensions = map[string]bool{
	".json": true,
	".js":   true,
	".zip":  true,
}

type Uploader interface {
	UploadWorkflowFile(sellerID string, file *multipart.FileHeader) (string, error)
}

type AliyunOSSUploader struct {
	client *oss.Client
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader() (*AliyunOSSUploader, error) {
	cfg := config.GlobalConfig.OSS
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		client: client,
		bucket: bucket,
		config: cfg,
	}, nil
}

// UploadWorkflowFile 上传工作流文件，按卖家/日期组织对象键
func (u *AliyunOSSUploader) UploadWorkflowFile(sellerID string, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// workflows/<sellerID>/YYYYMMDD/<uuid>.<ext>
	key := fmt.Sprintf("workflows/%s/%s/%s%s", sellerID, time.Now().Format("20060102"), uuid.New().String(), ext)

	if err := u.bucket.PutObject(key, src); err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key)
	return url, nil
}

// GlobalUploader instance
var GlobalUploader Uploader

func InitUploader() error {
	uploader, err := NewAliyunOSSUploader()
	if err != nil {
		return err
	}
	GlobalUploader = uploader
	return nil
}
