// Package studio is the thin HTTP adapter the page scripts call: it turns
// form posts into generation requests, records successful media in the
// history and reports busy state over a websocket.
package studio

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"quel-marketing-studio/modules/auth"
	"quel-marketing-studio/modules/common/utils"
	"quel-marketing-studio/modules/export"
	"quel-marketing-studio/modules/generation"
	"quel-marketing-studio/modules/history"
)

// multipart 업로드 최대 크기
const maxUploadSize = 32 << 20

// Handler - studio API
type Handler struct {
	generator  *generation.Client
	history    *history.Store
	prefs      *history.Preferences
	session    *auth.Session
	busy       *BusyGuard
	hub        *EventHub
	exportDir  string
	bucket     *export.Bucket
	signInPage string
	origins    *originPolicy
}

// Deps - Handler 구성 요소
type Deps struct {
	Generator   *generation.Client
	History     *history.Store
	Preferences *history.Preferences
	Session     *auth.Session
	Hub         *EventHub
	ExportDir   string
	Bucket      *export.Bucket // nil이면 storage 내보내기 비활성
	SignInPage  string

	// 브라우저 요청을 받아줄 다른 origin (same-origin은 항상 허용)
	AllowedOrigins []string
}

func NewHandler(deps Deps) *Handler {
	hub := deps.Hub
	if hub == nil {
		hub = NewEventHub()
	}
	session := deps.Session
	if session == nil {
		session = auth.NewSession(nil)
	}

	return &Handler{
		generator:  deps.Generator,
		history:    deps.History,
		prefs:      deps.Preferences,
		session:    session,
		busy:       NewBusyGuard(hub),
		hub:        hub,
		exportDir:  deps.ExportDir,
		bucket:     deps.Bucket,
		signInPage: deps.SignInPage,
		origins:    newOriginPolicy(deps.AllowedOrigins),
	}
}

// HandleGenerateImage - POST /api/generate-image {prompt}
func (h *Handler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid request format")
		return
	}

	req := generation.ImageRequest(body.Prompt).WithToken(h.session.Token())
	result, err := h.generator.Submit(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	// 백엔드가 보낸 base64 그대로 저장
	encoded := result.Encoded
	h.history.Append(r.Context(), history.Entry{
		Type:             history.EntryImage,
		ResultData:       encoded,
		SourceDescriptor: strings.TrimSpace(body.Prompt),
	})

	log.Printf("✅ [Studio] Image ready: %s... (request: %s)", utils.Preview(encoded), result.RequestID)
	writeJSON(w, http.StatusOK, map[string]string{
		"image_b64": encoded,
		"requestId": result.RequestID,
	})
}

// HandleGenerateVideo - POST /api/generate-video
// multipart image=<file> 또는 JSON {prompt}
func (h *Handler) HandleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req *generation.Request
	var source string

	if isMultipart(r) {
		upload, err := readUpload(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Please select an image file first.")
			return
		}
		req = generation.VideoFromImage(upload)
		source = upload.Filename
	} else {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid request format")
			return
		}
		req = generation.VideoFromPrompt(body.Prompt)
		source = strings.TrimSpace(body.Prompt)
	}

	result, err := h.generator.Submit(r.Context(), req.WithToken(h.session.Token()))
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	// URL 변형은 받은 데이터가 없으므로 히스토리에 남기지 않음
	if result.VideoURL != "" {
		writeJSON(w, http.StatusOK, map[string]string{
			"video_url": result.VideoURL,
			"requestId": result.RequestID,
		})
		return
	}

	encoded := result.Encoded
	h.history.Append(r.Context(), history.Entry{
		Type:             history.EntryVideo,
		ResultData:       encoded,
		SourceDescriptor: source,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"video_b64": encoded,
		"requestId": result.RequestID,
	})
}

// HandleUpscaleImage - POST /api/upscale-image multipart image, prompt
func (h *Handler) HandleUpscaleImage(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Please select an image file first.")
		return
	}
	upload, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Please select an image file first.")
		return
	}

	req := generation.UpscaleRequest(upload, r.FormValue("prompt")).WithToken(h.session.Token())
	result, err := h.generator.Submit(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"image_b64": result.Encoded,
		"requestId": result.RequestID,
	})
}

// HandleGenerateAnalysis - POST /api/generate-analysis {topic, analysis_type}
// 분석/페르소나 결과는 히스토리에 남기지 않음
func (h *Handler) HandleGenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic        string `json:"topic"`
		AnalysisType string `json:"analysis_type"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid request format")
		return
	}

	req := generation.AnalysisRequest(body.Topic, body.AnalysisType).WithToken(h.session.Token())
	result, err := h.generator.Submit(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	if result.Kind == generation.KindPersonas {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"personas": result.Personas,
		})
		return
	}
	writeJSON(w, http.StatusOK, result.Analysis.Findings)
}

// HandleListHistory - GET /api/history
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.List(r.Context()))
}

// HandleClearHistory - DELETE /api/history
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.history.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleExportHistory - POST /api/history/{index}/export?format=webp&dest=storage
func (h *Handler) HandleExportHistory(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid history index")
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), err.Error())
		return
	}

	dest := r.URL.Query().Get("dest")
	switch dest {
	case "", "disk":
	case "storage":
		if h.bucket == nil {
			writeError(w, http.StatusServiceUnavailable, "ExportDisabled", "Storage export is not configured")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Unsupported export destination")
		return
	}

	entry, ok := h.history.Get(r.Context(), index)
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "History entry not found")
		return
	}

	if dest == "storage" {
		url, err := h.bucket.Upload(r.Context(), entry, format)
		if err != nil {
			log.Printf("❌ [Studio] Storage export failed: %v", err)
			writeError(w, http.StatusBadGateway, "ExportFailed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	path, err := export.Entry(h.exportDir, entry, format)
	if err != nil {
		log.Printf("❌ [Studio] Export failed: %v", err)
		writeError(w, http.StatusInternalServerError, "ExportFailed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// HandleGetTheme - GET /api/theme
func (h *Handler) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"theme": h.prefs.Theme(r.Context())})
}

// HandlePutTheme - PUT /api/theme {theme}
func (h *Handler) HandlePutTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Theme string `json:"theme"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid request format")
		return
	}

	if err := h.prefs.SetTheme(r.Context(), body.Theme); err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": h.prefs.Theme(r.Context())})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp - POST /api/auth/signup
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid request format")
		return
	}

	identity, err := h.session.SignUp(r.Context(), body.Email, body.Password)
	if errors.Is(err, auth.ErrConfirmationPending) {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"user":    identity,
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
}

// HandleSignIn - POST /api/auth/signin
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, string(generation.InvalidRequest), "Invalid request format")
		return
	}

	identity, err := h.session.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
}

// HandleSignOut - POST /api/auth/signout
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe - GET /api/auth/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.session.Current()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:    "Not signed in",
			Kind:     string(generation.Unauthenticated),
			Redirect: h.signInPage,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
}

// HandleHealth - GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "quel-marketing-studio",
		"auth":    h.session.Enabled(),
	})
}

// HandleMetrics - GET /metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.hub.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":  time.Since(metrics.StartTime).String(),
		"metrics": metrics,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readUpload - multipart의 image 파트 읽기
func readUpload(w http.ResponseWriter, r *http.Request) (*generation.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &generation.Upload{Filename: header.Filename, Data: data}, nil
}
