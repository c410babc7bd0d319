// Package export writes history entries to disk so generated media can be
// downloaded or handed to other tools.
package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"quel-marketing-studio/modules/common/utils"
	"quel-marketing-studio/modules/history"
)

// Format - 이미지 내보내기 형식
type Format string

const (
	FormatRaw  Format = "raw"  // 받은 그대로 (.png)
	FormatWebP Format = "webp" // WebP 변환
)

// WebP 변환 품질
const webpQuality = 85

// ParseFormat - "" / "raw" / "png" -> raw, "webp" -> webp
func ParseFormat(raw string) (Format, error) {
	switch raw {
	case "", "raw", "png":
		return FormatRaw, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", raw)
}

// rendered - 내보낼 바이너리와 파일명
type rendered struct {
	data        []byte
	filename    string
	contentType string
}

// render - 디코딩 + 필요 시 WebP 변환
// 영상은 형식과 관계없이 .mp4
func render(entry history.Entry, format Format) (*rendered, error) {
	data, err := utils.DecodeBase64(entry.ResultData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s entry: %w", entry.Type, err)
	}

	var ext, contentType string
	switch entry.Type {
	case history.EntryImage:
		ext, contentType = "png", "image/png"
		if format == FormatWebP {
			data, err = utils.ConvertToWebP(data, webpQuality)
			if err != nil {
				return nil, err
			}
			ext, contentType = "webp", "image/webp"
		}
	case history.EntryVideo:
		ext, contentType = "mp4", "video/mp4"
	default:
		return nil, fmt.Errorf("unsupported entry type: %q", entry.Type)
	}

	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &rendered{
		data:        data,
		filename:    fmt.Sprintf("%s_%d.%s", entry.Type, timestamp.UnixMilli(), ext),
		contentType: contentType,
	}, nil
}

// Entry - 히스토리 항목을 dir에 파일로 저장하고 경로 반환
func Entry(dir string, entry history.Entry, format Format) (string, error) {
	out, err := render(entry, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, out.filename)
	if err := os.WriteFile(path, out.data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Printf("📦 [Export] %s entry written: %s (%d bytes)", entry.Type, path, len(out.data))
	return path, nil
}
