package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"

	storage_go "github.com/supabase-community/storage-go"

	"quel-marketing-studio/modules/common/config"
	"quel-marketing-studio/modules/history"
)

// Bucket - Supabase Storage 버킷으로 내보내기
type Bucket struct {
	client *storage_go.Client
	bucket string
	folder string

	// storage-go는 업로드 옵션을 client 공용 헤더에 기록함
	mu sync.Mutex
}

// NewBucket - storageURL은 .../storage/v1 까지
func NewBucket(storageURL, serviceKey, bucket, folder string) *Bucket {
	client := storage_go.NewClient(storageURL, serviceKey, map[string]string{"apikey": serviceKey})
	return &Bucket{
		client: client,
		bucket: bucket,
		folder: strings.Trim(folder, "/"),
	}
}

// NewBucketFromConfig - EXPORT_BUCKET이 비어 있으면 nil
func NewBucketFromConfig(cfg *config.Config) *Bucket {
	if cfg.ExportBucket == "" {
		return nil
	}
	storageURL := strings.TrimRight(cfg.SupabaseURL, "/") + "/storage/v1"
	log.Printf("✅ [Export] Storage bucket enabled: %s/%s", cfg.ExportBucket, cfg.ExportFolder)
	return NewBucket(storageURL, cfg.SupabaseServiceKey, cfg.ExportBucket, cfg.ExportFolder)
}

// Upload - 히스토리 항목을 버킷에 올리고 public URL 반환
func (b *Bucket) Upload(ctx context.Context, entry history.Entry, format Format) (string, error) {
	out, err := render(entry, format)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	objectPath := path.Join(b.folder, out.filename)
	upsert := true

	log.Printf("📤 [Export] Uploading %s to storage: %s/%s", entry.Type, b.bucket, objectPath)

	b.mu.Lock()
	_, err = b.client.UploadFile(b.bucket, objectPath, bytes.NewReader(out.data), storage_go.FileOptions{
		ContentType: &out.contentType,
		Upsert:      &upsert,
	})
	b.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	publicURL := b.client.GetPublicUrl(b.bucket, objectPath).SignedURL
	log.Printf("✅ [Export] Uploaded %d bytes: %s", len(out.data), publicURL)
	return publicURL, nil
}
