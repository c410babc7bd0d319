package generation

import (
	"io"
	"strings"
)

// POST /upscale-image multipart image=<file>, prompt=<text> -> {image_b64}
var upscaleOperation = operation{
	path: "/upscale-image",
	build: func(req *Request) (io.Reader, string, error) {
		return multipartBody(req.SourceImage, [][2]string{{"prompt", strings.TrimSpace(req.Prompt)}})
	},
	decode: func(_ *Request, status int, body []byte, result *Result) error {
		return decodeBase64Field(status, body, "image_b64", result)
	},
}
