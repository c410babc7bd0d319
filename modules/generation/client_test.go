package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	server *httptest.Server
	calls  atomic.Int32

	mu       sync.Mutex
	lastReq  *http.Request
	lastBody []byte
}

func newStubBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *stubBackend {
	t.Helper()
	stub := &stubBackend{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.lastReq = r
		stub.lastBody = body
		stub.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler(w, r)
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func respondJSON(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (s *stubBackend) client(opts Options) *Client {
	opts.BaseURL = s.server.URL
	return NewClient(opts)
}

func TestSubmitImageSuccess(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"image_b64":"Zm9v"}`))
	client := stub.client(Options{})

	result, err := client.Submit(context.Background(), ImageRequest("a red fox"))
	require.NoError(t, err)

	assert.Equal(t, KindImage, result.Kind)
	assert.Equal(t, []byte("foo"), result.Data)
	assert.Equal(t, "Zm9v", result.Encoded)
	assert.NotEmpty(t, result.RequestID)

	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, "/generate-image", stub.lastReq.URL.Path)
	assert.Equal(t, http.MethodPost, stub.lastReq.Method)
	assert.Equal(t, "application/json", stub.lastReq.Header.Get("Content-Type"))
	assert.Equal(t, result.RequestID, stub.lastReq.Header.Get("X-Request-Id"))
	assert.Empty(t, stub.lastReq.Header.Get("Authorization"))
	assert.JSONEq(t, `{"prompt":"a red fox"}`, string(stub.lastBody))
}

func TestSubmitRejectsInvalidRequestsWithoutNetwork(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"image_b64":"Zm9v"}`))
	client := stub.client(Options{})

	tests := []struct {
		name string
		req  *Request
	}{
		{"nil request", nil},
		{"empty image prompt", ImageRequest("")},
		{"blank image prompt", ImageRequest("   ")},
		{"video without input", VideoFromPrompt("")},
		{"video with both inputs", &Request{Kind: KindVideo, Prompt: "waves", SourceImage: &Upload{Data: []byte("x")}}},
		{"upscale without image", UpscaleRequest(nil, "sharper")},
		{"upscale without prompt", UpscaleRequest(&Upload{Filename: "a.png", Data: []byte("x")}, "")},
		{"analysis without topic", AnalysisRequest("", "SWOT")},
		{"analysis with unknown type", AnalysisRequest("coffee shop", "BCG matrix")},
		{"unknown kind", &Request{Kind: "audio", Prompt: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsKind(err, InvalidRequest), "got %v", err)
		})
	}
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestSubmitRejectsMissingImageField(t *testing.T) {
	bodies := map[string]string{
		"empty object":   `{}`,
		"empty string":   `{"image_b64":""}`,
		"not a string":   `{"image_b64":42}`,
		"invalid base64": `{"image_b64":"***"}`,
		"not json":       `<html>ok</html>`,
		"json array":     `[]`,
		"json null":      `null`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			stub := newStubBackend(t, respondJSON(http.StatusOK, body))
			result, err := stub.client(Options{}).Submit(context.Background(), ImageRequest("a red fox"))

			assert.Nil(t, result)
			assert.True(t, IsKind(err, MalformedResponse), "got %v", err)
		})
	}
}

func TestSubmitBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{"structured error", http.StatusInternalServerError, `{"error":"Model overloaded"}`, BackendError, "Model overloaded"},
		{"json without error", http.StatusBadGateway, `{"detail":"nope"}`, BackendError, "HTTP error! Status: 502"},
		{"unparseable body", http.StatusInternalServerError, `Internal Server Error`, BackendError, "An unknown error occurred."},
		{"bad request from backend", http.StatusBadRequest, `{"error":"Prompt is required"}`, BackendError, "Prompt is required"},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Missing token"}`, Unauthenticated, "Missing token"},
		{"forbidden without body", http.StatusForbidden, ``, Unauthenticated, "An unknown error occurred."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubBackend(t, respondJSON(tt.status, tt.body))
			_, err := stub.client(Options{}).Submit(context.Background(), ImageRequest("a red fox"))
			require.Error(t, err)

			var genErr *Error
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.kind, genErr.Kind)
			assert.Equal(t, tt.status, genErr.Status)
			assert.Equal(t, tt.message, genErr.Message)
		})
	}
}

func TestSubmitUnauthenticatedIsDistinctFromBackendError(t *testing.T) {
	stub := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer id-token" {
			respondJSON(http.StatusUnauthorized, `{"error":"Unauthorized"}`)(w, r)
			return
		}
		respondJSON(http.StatusOK, `{"image_b64":"Zm9v"}`)(w, r)
	})
	client := stub.client(Options{})

	_, err := client.Submit(context.Background(), ImageRequest("a red fox"))
	assert.True(t, IsKind(err, Unauthenticated))
	assert.False(t, IsKind(err, BackendError))

	result, err := client.Submit(context.Background(), ImageRequest("a red fox").WithToken("id-token"))
	require.NoError(t, err)
	assert.Equal(t, []byte("foo"), result.Data)
}

func TestSubmitRequireAuthRejectsLocally(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"image_b64":"Zm9v"}`))
	client := stub.client(Options{RequireAuth: map[string]bool{"image": true, "personas": true}})

	_, err := client.Submit(context.Background(), ImageRequest("a red fox"))
	assert.True(t, IsKind(err, Unauthenticated))

	_, err = client.Submit(context.Background(), AnalysisRequest("coffee shop", "Customer Personas"))
	assert.True(t, IsKind(err, Unauthenticated))
	assert.Equal(t, int32(0), stub.calls.Load())

	_, err = client.Submit(context.Background(), ImageRequest("a red fox").WithToken("tok"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", stub.lastReq.Header.Get("Authorization"))
}

func TestSubmitTransportError(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{}`))
	url := stub.server.URL
	stub.server.Close()

	_, err := NewClient(Options{BaseURL: url}).Submit(context.Background(), ImageRequest("a red fox"))
	assert.True(t, IsKind(err, TransportError), "got %v", err)
}

func TestSubmitCancellation(t *testing.T) {
	release := make(chan struct{})
	stub := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := stub.client(Options{}).Submit(ctx, ImageRequest("a red fox"))
	require.Error(t, err)
	assert.True(t, IsKind(err, TransportError))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	stub := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := stub.client(Options{Timeout: 50 * time.Millisecond}).Submit(context.Background(), ImageRequest("a red fox"))
	assert.True(t, IsKind(err, TransportError), "got %v", err)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (o *recordingObserver) OnStart(requestID string, kind Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "start:"+string(kind))
}

func (o *recordingObserver) OnFinish(requestID string, kind Kind, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "finish:"+string(kind))
	o.errs = append(o.errs, err)
}

func TestSubmitNotifiesObserverOnEveryExit(t *testing.T) {
	var failing atomic.Bool
	stub := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if !failing.Load() {
			respondJSON(http.StatusOK, `{"image_b64":"Zm9v"}`)(w, r)
			return
		}
		respondJSON(http.StatusInternalServerError, `{"error":"boom"}`)(w, r)
	})
	observer := &recordingObserver{}
	client := stub.client(Options{Observer: observer})

	_, err := client.Submit(context.Background(), ImageRequest("a red fox"))
	require.NoError(t, err)

	failing.Store(true)
	_, err = client.Submit(context.Background(), ImageRequest("a red fox"))
	require.Error(t, err)

	// 로컬 검증 실패는 네트워크 호출이 없으므로 통지 없음
	_, err = client.Submit(context.Background(), ImageRequest(""))
	require.Error(t, err)

	assert.Equal(t, []string{"start:image", "finish:image", "start:image", "finish:image"}, observer.events)
	assert.NoError(t, observer.errs[0])
	assert.True(t, IsKind(observer.errs[1], BackendError))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: BackendError, Status: 500, Message: "boom"}
	assert.Equal(t, "BackendError (status 500): boom", err.Error())

	err = &Error{Kind: InvalidRequest, Message: "Prompt is required"}
	assert.Equal(t, "InvalidRequest: Prompt is required", err.Error())

	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
	assert.Equal(t, TransportError, KindOf(&Error{Kind: TransportError}))
}

func decodeJSONBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}
