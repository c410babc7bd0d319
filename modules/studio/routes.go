package studio

import (
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// RegisterRoutes - studio 라우트 등록
// 생성 요청은 control별 busy guard를 거친다
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.HandleHealth).Methods("GET")
	r.HandleFunc("/health", h.HandleHealth).Methods("GET")
	r.HandleFunc("/metrics", h.HandleMetrics).Methods("GET")
	r.HandleFunc("/ws", h.hub.HandleWebSocket)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/generate-image", h.withBusy("generate-image", h.HandleGenerateImage)).Methods("POST")
	api.HandleFunc("/generate-video", h.withBusy("generate-video", h.HandleGenerateVideo)).Methods("POST")
	api.HandleFunc("/upscale-image", h.withBusy("upscale-image", h.HandleUpscaleImage)).Methods("POST")
	api.HandleFunc("/generate-analysis", h.withBusy("generate-analysis", h.HandleGenerateAnalysis)).Methods("POST")

	api.HandleFunc("/history", h.HandleListHistory).Methods("GET")
	api.HandleFunc("/history", h.HandleClearHistory).Methods("DELETE")
	api.HandleFunc("/history/{index:[0-9]+}/export", h.HandleExportHistory).Methods("POST")

	api.HandleFunc("/theme", h.HandleGetTheme).Methods("GET")
	api.HandleFunc("/theme", h.HandlePutTheme).Methods("PUT")

	api.HandleFunc("/auth/signup", h.HandleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", h.HandleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", h.HandleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", h.HandleMe).Methods("GET")
}

// NewRouter - origin 검사와 CORS를 라우터 바깥에서 적용 (preflight OPTIONS는 어떤 route에도 매칭되지 않음)
func (h *Handler) NewRouter() http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return h.origins.middleware(r)
}

// originPolicy - 브라우저 요청을 받아줄 origin 목록 ("*"는 전부)
type originPolicy struct {
	any     bool
	allowed map[string]bool
}

func newOriginPolicy(origins []string) *originPolicy {
	p := &originPolicy{allowed: make(map[string]bool, len(origins))}
	for _, origin := range origins {
		if origin == "*" {
			p.any = true
			continue
		}
		p.allowed[origin] = true
	}
	return p
}

// allow - Origin 헤더가 없거나 (브라우저 밖), same-origin이거나, 목록에 있으면 허용
func (p *originPolicy) allow(r *http.Request) (string, bool) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return "", true
	}
	if p.any || p.allowed[origin] {
		return origin, true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return origin, true
	}
	return origin, false
}

// middleware - 허용되지 않은 origin은 preflight와 본 요청 모두 403
func (p *originPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin, ok := p.allow(r)
		if !ok {
			log.Printf("⚠️ [Studio] Rejected %s %s from origin %s", r.Method, r.URL.Path, origin)
			writeError(w, http.StatusForbidden, "OriginNotAllowed", "Origin not allowed")
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Control-Id")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
