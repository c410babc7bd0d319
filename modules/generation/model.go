package generation

import (
	"strings"
)

// Kind - 생성 종류
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindUpscale  Kind = "upscale"
	KindAnalysis Kind = "analysis"
	KindPersonas Kind = "personas"
)

// Upload - multipart로 올릴 원본 파일
type Upload struct {
	Filename string
	Data     []byte
}

// Request - 생성 요청 (Kind에 따라 필요한 필드가 다름)
//
//	image:    Prompt
//	video:    SourceImage 또는 Prompt (둘 중 하나만)
//	upscale:  SourceImage + Prompt
//	analysis: Topic + AnalysisType
type Request struct {
	Kind         Kind
	Prompt       string
	SourceImage  *Upload
	Topic        string
	AnalysisType string
	AuthToken    string // 로그인 상태일 때만
}

// ImageRequest - 프롬프트로 이미지 생성
func ImageRequest(prompt string) *Request {
	return &Request{Kind: KindImage, Prompt: prompt}
}

// VideoFromImage - 이미지 업로드로 영상 생성 (응답: video_b64)
func VideoFromImage(image *Upload) *Request {
	return &Request{Kind: KindVideo, SourceImage: image}
}

// VideoFromPrompt - 프롬프트로 영상 생성 (응답: video_url)
func VideoFromPrompt(prompt string) *Request {
	return &Request{Kind: KindVideo, Prompt: prompt}
}

// UpscaleRequest - 이미지 업스케일
func UpscaleRequest(image *Upload, prompt string) *Request {
	return &Request{Kind: KindUpscale, SourceImage: image, Prompt: prompt}
}

// AnalysisRequest - SWOT/PESTLE/Porter/Customer Personas 분석
func AnalysisRequest(topic, analysisType string) *Request {
	return &Request{Kind: KindAnalysis, Topic: topic, AnalysisType: analysisType}
}

// WithToken - bearer 토큰 첨부
func (r *Request) WithToken(token string) *Request {
	r.AuthToken = token
	return r
}

// Operation - REQUIRE_AUTH 설정에서 쓰는 operation 이름
// Customer Personas 분석은 personas로 분리된다.
func (r *Request) Operation() Kind {
	if r.Kind == KindAnalysis {
		if t, ok := ParseAnalysisType(r.AnalysisType); ok && t == CustomerPersonas {
			return KindPersonas
		}
	}
	return r.Kind
}

// validate - 네트워크 호출 전 필수 필드 확인
func (r *Request) validate() *Error {
	switch r.Kind {
	case KindImage:
		if strings.TrimSpace(r.Prompt) == "" {
			return invalidRequest("Prompt is required")
		}
	case KindVideo:
		hasImage := r.SourceImage != nil && len(r.SourceImage.Data) > 0
		hasPrompt := strings.TrimSpace(r.Prompt) != ""
		if hasImage && hasPrompt {
			return invalidRequest("Provide either an image or a prompt for video generation, not both")
		}
		if !hasImage && !hasPrompt {
			return invalidRequest("Please select an image file first.")
		}
	case KindUpscale:
		if r.SourceImage == nil || len(r.SourceImage.Data) == 0 {
			return invalidRequest("Please select an image file first.")
		}
		if strings.TrimSpace(r.Prompt) == "" {
			return invalidRequest("Prompt is required")
		}
	case KindAnalysis:
		if strings.TrimSpace(r.Topic) == "" {
			return invalidRequest("Please describe your product or business.")
		}
		if _, ok := ParseAnalysisType(r.AnalysisType); !ok {
			return invalidRequest("Unsupported analysis type: %q", r.AnalysisType)
		}
	default:
		return invalidRequest("Unsupported generation kind: %q", r.Kind)
	}
	return nil
}

// Result - 성공한 생성 결과
type Result struct {
	Kind      Kind
	RequestID string

	// image, upscale, video(b64 변형)
	Data    []byte
	Encoded string // 백엔드가 보낸 base64 그대로 (히스토리 저장용)

	// video(prompt 변형)
	VideoURL string

	Analysis *Analysis
	Personas []Persona
}

// Analysis - 카테고리별 결과 (응답에 없는 카테고리도 빈 목록으로 포함)
type Analysis struct {
	Type     AnalysisType        `json:"analysis_type"`
	Order    []string            `json:"order"`
	Findings map[string][]string `json:"findings"`
	FieldMap int                 `json:"field_map_version"` // 해석에 쓴 FieldMapVersion
}

// Category - 카테고리 결과 조회 (없으면 빈 목록)
func (a *Analysis) Category(name string) []string {
	if findings, ok := a.Findings[name]; ok {
		return findings
	}
	return []string{}
}

// Persona - 고객 페르소나
type Persona struct {
	Name         string   `json:"name"`
	Bio          string   `json:"bio"`
	Demographics string   `json:"demographics"`
	Goals        []string `json:"goals"`
	Frustrations []string `json:"frustrations"`
}
