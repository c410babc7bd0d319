package generation

import (
	"log"

	"quel-marketing-studio/modules/common/fallback"
)

// Customer Personas는 analysis 경로를 공유하고 응답 형태만 다름
// {personas: [{name, bio, demographics, goals[], frustrations[]}]}
var personasOperation = operation{
	path:   "/generate-analysis",
	build:  buildAnalysisBody,
	decode: decodePersonas,
}

// decodePersonas - personas 배열이 없으면 MalformedResponse
// 각 페르소나의 빠진 필드는 빈 값으로 채움
func decodePersonas(_ *Request, status int, body []byte, result *Result) error {
	parsed, err := decodeObject(status, body)
	if err != nil {
		return err
	}

	raw, ok := parsed["personas"].([]interface{})
	if !ok {
		return malformed(status, "Response personas is %s, expected array", fallback.Describe(parsed["personas"]))
	}

	personas := make([]Persona, 0, len(raw))
	for i, item := range raw {
		obj := fallback.SafeObject(item)
		if len(obj) == 0 {
			log.Printf("⚠️ [Generation] Persona %d is %s, using empty record", i, fallback.Describe(item))
		}
		personas = append(personas, Persona{
			Name:         fallback.SafeString(obj["name"], ""),
			Bio:          fallback.SafeString(obj["bio"], ""),
			Demographics: fallback.SafeString(obj["demographics"], ""),
			Goals:        fallback.SafeStringList(obj["goals"]),
			Frustrations: fallback.SafeStringList(obj["frustrations"]),
		})
	}

	result.Personas = personas
	return nil
}
