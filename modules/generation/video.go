package generation

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"quel-marketing-studio/modules/common/utils"
)

// 같은 경로를 쓰는 두 가지 백엔드 모드
//
//	multipart image=<file> -> {video_b64}
//	JSON {prompt}          -> {video_url}
var videoFromImageOperation = operation{
	path: "/generate-video",
	build: func(req *Request) (io.Reader, string, error) {
		return multipartBody(req.SourceImage, nil)
	},
	decode: func(_ *Request, status int, body []byte, result *Result) error {
		return decodeBase64Field(status, body, "video_b64", result)
	},
}

var videoFromPromptOperation = operation{
	path: "/generate-video",
	build: func(req *Request) (io.Reader, string, error) {
		return jsonBody(map[string]string{"prompt": strings.TrimSpace(req.Prompt)})
	},
	decode: func(_ *Request, status int, body []byte, result *Result) error {
		parsed, err := decodeObject(status, body)
		if err != nil {
			return err
		}

		videoURL, ok := parsed["video_url"].(string)
		videoURL = strings.TrimSpace(videoURL)
		if !ok || videoURL == "" {
			return malformed(status, "Response is missing video_url")
		}
		if u, err := url.Parse(videoURL); err != nil || u.Scheme == "" {
			return malformed(status, "Response video_url is not an absolute URL")
		}

		result.VideoURL = videoURL
		return nil
	},
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody - image 파트 + 추가 텍스트 필드로 multipart 본문 생성
func multipartBody(upload *Upload, fields [][2]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := strings.TrimSpace(upload.Filename)
	if filename == "" {
		filename = "image"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", utils.DetectContentType(upload.Data))

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", field[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
