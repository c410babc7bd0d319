package history

import (
	"time"
)

// 슬롯 이름 (브라우저 localStorage 키와 동일)
const (
	HistoryKey = "generationHistory"
	ThemeKey   = "theme"
)

// MaxEntries - 히스토리 최대 개수 (넘으면 오래된 것부터 제거)
const MaxEntries = 20

// EntryType - 히스토리에 남는 생성 종류
type EntryType string

const (
	EntryImage EntryType = "image"
	EntryVideo EntryType = "video"
)

// Entry - 완료된 이미지/영상 생성 기록
type Entry struct {
	Type             EntryType `json:"type"`
	ResultData       string    `json:"resultData"`       // base64
	SourceDescriptor string    `json:"sourceDescriptor"` // 이미지는 프롬프트, 영상은 원본 파일명
	Timestamp        time.Time `json:"timestamp"`
}

// Valid - 저장 가능한 항목인지 확인
func (e Entry) Valid() bool {
	if e.Type != EntryImage && e.Type != EntryVideo {
		return false
	}
	return e.ResultData != ""
}
