package generation

import (
	"io"
	"log"
	"strings"

	"quel-marketing-studio/modules/common/fallback"
)

// POST /generate-analysis {topic, analysis_type} -> {category: [findings...]}
var analysisOperation = operation{
	path:   "/generate-analysis",
	build:  buildAnalysisBody,
	decode: decodeAnalysis,
}

func buildAnalysisBody(req *Request) (io.Reader, string, error) {
	analysisType, _ := ParseAnalysisType(req.AnalysisType)
	return jsonBody(map[string]string{
		"topic":         strings.TrimSpace(req.Topic),
		"analysis_type": string(analysisType),
	})
}

// decodeAnalysis - 필드 매핑 테이블로 카테고리 정규화
// 응답에 없는 카테고리는 빈 목록, 에러 아님
func decodeAnalysis(req *Request, status int, body []byte, result *Result) error {
	parsed, err := decodeObject(status, body)
	if err != nil {
		return err
	}

	analysisType, _ := ParseAnalysisType(req.AnalysisType)
	mappings := analysisFieldMap[analysisType]

	analysis := &Analysis{
		Type:     analysisType,
		Order:    make([]string, 0, len(mappings)),
		Findings: make(map[string][]string, len(mappings)),
		FieldMap: FieldMapVersion,
	}

	for _, m := range mappings {
		analysis.Order = append(analysis.Order, m.Category)

		value, key, found := lookupCategory(parsed, m)
		if !found {
			analysis.Findings[m.Category] = []string{}
			continue
		}

		findings := fallback.SafeStringList(value)
		if len(findings) == 0 && value != nil {
			log.Printf("🔍 [Generation] %s.%s is %s, treated as empty", analysisType, key, fallback.Describe(value))
		}
		analysis.Findings[m.Category] = findings
	}

	result.Analysis = analysis
	return nil
}
