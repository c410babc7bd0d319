package generation

import (
	"sort"
	"strings"
	"unicode"
)

// AnalysisType - /generate-analysis 의 analysis_type 값
type AnalysisType string

const (
	SWOT              AnalysisType = "SWOT"
	PESTLE            AnalysisType = "PESTLE"
	PortersFiveForces AnalysisType = "Porters Five Forces"
	CustomerPersonas  AnalysisType = "Customer Personas"
)

// FieldMapVersion - 분석 응답 필드 매핑 테이블 버전
// 카테고리나 alias를 바꾸면 올린다.
const FieldMapVersion = 2

type fieldMapping struct {
	Category string
	Aliases  []string
}

// analysisFieldMap - 분석 종류별 canonical 카테고리와 허용 alias
//
// 응답 키는 정확히 일치하는 이름을 먼저 찾고, 없으면 대소문자와
// 구분자(공백, _, -, ')를 무시하고 비교한다.
var analysisFieldMap = map[AnalysisType][]fieldMapping{
	SWOT: {
		{"strengths", []string{"Strengths", "STRENGTHS", "strength"}},
		{"weaknesses", []string{"Weaknesses", "WEAKNESSES", "weakness"}},
		{"opportunities", []string{"Opportunities", "OPPORTUNITIES", "opportunity"}},
		{"threats", []string{"Threats", "THREATS", "threat"}},
	},
	PESTLE: {
		{"political", []string{"Political", "POLITICAL", "politics"}},
		{"economic", []string{"Economic", "ECONOMIC", "economy"}},
		{"social", []string{"Social", "SOCIAL", "sociocultural"}},
		{"technological", []string{"Technological", "TECHNOLOGICAL", "technology"}},
		{"legal", []string{"Legal", "LEGAL"}},
		{"environmental", []string{"Environmental", "ENVIRONMENTAL", "environment"}},
	},
	PortersFiveForces: {
		{"threat_of_new_entrants", []string{"Threat of New Entrants", "threatOfNewEntrants", "new_entrants"}},
		{"bargaining_power_of_suppliers", []string{"Bargaining Power of Suppliers", "bargainingPowerOfSuppliers", "supplier_power"}},
		{"bargaining_power_of_buyers", []string{"Bargaining Power of Buyers", "bargainingPowerOfBuyers", "buyer_power"}},
		{"threat_of_substitutes", []string{"Threat of Substitutes", "threatOfSubstitutes", "threat_of_substitute_products"}},
		{"competitive_rivalry", []string{"Competitive Rivalry", "competitiveRivalry", "industry_rivalry", "rivalry"}},
	},
}

// ParseAnalysisType - 대소문자/구분자 차이를 허용해서 분석 종류 해석
func ParseAnalysisType(raw string) (AnalysisType, bool) {
	switch normalizeKey(raw) {
	case "swot":
		return SWOT, true
	case "pestle", "pestel":
		return PESTLE, true
	case "portersfiveforces", "porterfiveforces", "fiveforces":
		return PortersFiveForces, true
	case "customerpersonas", "personas":
		return CustomerPersonas, true
	}
	return "", false
}

// Categories - 분석 종류의 canonical 카테고리 목록 (테이블 순서)
func Categories(t AnalysisType) []string {
	mappings := analysisFieldMap[t]
	names := make([]string, 0, len(mappings))
	for _, m := range mappings {
		names = append(names, m.Category)
	}
	return names
}

// lookupCategory - 응답 객체에서 카테고리 값 찾기
func lookupCategory(body map[string]interface{}, m fieldMapping) (interface{}, string, bool) {
	candidates := append([]string{m.Category}, m.Aliases...)

	for _, name := range candidates {
		if value, ok := body[name]; ok {
			return value, name, true
		}
	}

	wanted := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		wanted[normalizeKey(name)] = true
	}

	// 여러 키가 걸리면 정렬 순서상 첫 번째
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if wanted[normalizeKey(key)] {
			return body[key], key, true
		}
	}
	return nil, "", false
}

// normalizeKey - 소문자 + 영숫자만 남김
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
