package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"quel-marketing-studio/modules/common/config"
)

// Observer - Submit 시작/종료 통지 (UI busy 상태 표시용)
type Observer interface {
	OnStart(requestID string, kind Kind)
	OnFinish(requestID string, kind Kind, err error)
}

// Options - Client 생성 옵션
type Options struct {
	BaseURL     string
	RequireAuth map[string]bool // operation 이름 -> 토큰 필요 여부
	Timeout     time.Duration   // 0이면 transport 기본값 (타임아웃 없음)
	HTTPClient  *http.Client
	Observer    Observer
}

// Client - 원격 생성 백엔드 클라이언트
type Client struct {
	baseURL     string
	requireAuth map[string]bool
	httpClient  *http.Client
	observer    Observer
}

// operation - 종류별 요청 생성/응답 해석
type operation struct {
	path   string
	build  func(req *Request) (body io.Reader, contentType string, err error)
	decode func(req *Request, status int, body []byte, result *Result) error
}

// NewClient - 옵션으로 Client 생성
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	requireAuth := make(map[string]bool, len(opts.RequireAuth))
	for op, required := range opts.RequireAuth {
		requireAuth[op] = required
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		requireAuth: requireAuth,
		httpClient:  httpClient,
		observer:    opts.Observer,
	}
}

// NewClientFromConfig - 설정값으로 Client 생성
func NewClientFromConfig(cfg *config.Config, observer Observer) *Client {
	client := NewClient(Options{
		BaseURL:     cfg.BackendURL,
		RequireAuth: cfg.RequireAuth,
		Timeout:     cfg.GenerationTimeout,
		Observer:    observer,
	})
	log.Printf("✅ [Generation] Client initialized: %s", client.baseURL)
	return client
}

// Submit - 요청 하나를 백엔드 호출 하나로 보내고 결과 또는 분류된 에러 반환
//
// 재시도는 없다. ctx가 취소되지 않으면 응답이 올 때까지 기다린다.
func (c *Client) Submit(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, invalidRequest("Request is required")
	}
	if err := req.validate(); err != nil {
		log.Printf("⚠️ [Generation] Rejected locally: %s", err.Message)
		return nil, err
	}

	op := req.Operation()
	if c.requireAuth[string(op)] && strings.TrimSpace(req.AuthToken) == "" {
		log.Printf("⚠️ [Generation] %s requires sign-in, no token supplied", op)
		return nil, &Error{Kind: Unauthenticated, Message: "Please sign in to continue."}
	}

	plan := c.plan(req)
	requestID := uuid.New().String()

	if c.observer != nil {
		c.observer.OnStart(requestID, op)
	}
	result, err := c.do(ctx, requestID, req, plan)
	if c.observer != nil {
		c.observer.OnFinish(requestID, op, err)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) plan(req *Request) operation {
	switch req.Kind {
	case KindImage:
		return imageOperation
	case KindVideo:
		if req.SourceImage != nil && len(req.SourceImage.Data) > 0 {
			return videoFromImageOperation
		}
		return videoFromPromptOperation
	case KindUpscale:
		return upscaleOperation
	default:
		if req.Operation() == KindPersonas {
			return personasOperation
		}
		return analysisOperation
	}
}

func (c *Client) do(ctx context.Context, requestID string, req *Request, plan operation) (*Result, error) {
	startTime := time.Now()
	url := c.baseURL + plan.path

	body, contentType, err := plan.build(req)
	if err != nil {
		return nil, &Error{Kind: InvalidRequest, Message: "Failed to build request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &Error{Kind: InvalidRequest, Message: "Failed to build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if token := strings.TrimSpace(req.AuthToken); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log.Printf("📤 [Generation] %s %s (request: %s)", req.Operation(), plan.path, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("❌ [Generation] Transport failure (request: %s): %v", requestID, err)
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("❌ [Generation] Failed to read response (request: %s): %v", requestID, err)
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		genErr := backendError(resp.StatusCode, respBody)
		log.Printf("❌ [Generation] %s (request: %s)", genErr.Error(), requestID)
		return nil, genErr
	}

	result := &Result{Kind: req.Operation(), RequestID: requestID}
	if err := plan.decode(req, resp.StatusCode, respBody, result); err != nil {
		log.Printf("❌ [Generation] %v (request: %s)", err, requestID)
		return nil, err
	}

	log.Printf("📥 [Generation] %s completed in %.2fs (request: %s)", result.Kind, time.Since(startTime).Seconds(), requestID)
	return result, nil
}

func transportError(ctx context.Context, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Kind: TransportError, Message: "Request cancelled", Err: errors.Join(ctxErr, err)}
	}
	return &Error{Kind: TransportError, Message: err.Error(), Err: err}
}

// backendError - 비성공 응답 분류
//
//	{"error": "..."}        -> 그 메시지
//	JSON이지만 error 없음    -> "HTTP error! Status: N"
//	JSON 아님               -> "An unknown error occurred."
//
// 401/403은 Unauthenticated.
func backendError(status int, body []byte) *Error {
	kind := BackendError
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = Unauthenticated
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &Error{Kind: kind, Status: status, Message: unknownErrorMessage}
	}

	if msg, ok := parsed["error"].(string); ok && strings.TrimSpace(msg) != "" {
		return &Error{Kind: kind, Status: status, Message: msg}
	}
	return &Error{Kind: kind, Status: status, Message: fmt.Sprintf(statusMessageFormat, status)}
}

// decodeObject - 성공 응답 본문을 JSON 객체로 해석
func decodeObject(status int, body []byte) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: MalformedResponse, Status: status, Message: "Response is not a JSON object", Err: err}
	}
	if parsed == nil {
		return nil, malformed(status, "Response is not a JSON object")
	}
	return parsed, nil
}
