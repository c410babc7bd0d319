package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"quel-marketing-studio/modules/common/utils"
)

// POST /generate-image {prompt} -> {image_b64}
var imageOperation = operation{
	path: "/generate-image",
	build: func(req *Request) (io.Reader, string, error) {
		return jsonBody(map[string]string{"prompt": strings.TrimSpace(req.Prompt)})
	},
	decode: func(_ *Request, status int, body []byte, result *Result) error {
		return decodeBase64Field(status, body, "image_b64", result)
	},
}

func jsonBody(payload interface{}) (io.Reader, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// decodeBase64Field - 응답의 base64 필드를 Result.Data/Encoded로 채움
// 필드가 없거나 문자열이 아니거나 디코딩 불가면 MalformedResponse
func decodeBase64Field(status int, body []byte, field string, result *Result) error {
	parsed, err := decodeObject(status, body)
	if err != nil {
		return err
	}

	encoded, ok := parsed[field].(string)
	if !ok || strings.TrimSpace(encoded) == "" {
		return malformed(status, "Response is missing %s", field)
	}

	data, err := utils.DecodeBase64(encoded)
	if err != nil {
		return &Error{Kind: MalformedResponse, Status: status, Message: fmt.Sprintf("Response %s is not valid base64", field), Err: err}
	}

	result.Data = data
	result.Encoded = encoded
	return nil
}
