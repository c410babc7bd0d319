package studio

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quel-marketing-studio/modules/auth"
	"quel-marketing-studio/modules/generation"
)

// ErrorResponse - 모든 실패 응답 형태
type ErrorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ [Studio] Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}

// generationStatus - 분류별 HTTP status
var generationStatus = map[generation.ErrorKind]int{
	generation.InvalidRequest:    http.StatusBadRequest,
	generation.Unauthenticated:   http.StatusUnauthorized,
	generation.BackendError:      http.StatusBadGateway,
	generation.TransportError:    http.StatusGatewayTimeout,
	generation.MalformedResponse: http.StatusBadGateway,
}

// writeGenerationError - Unauthenticated는 로그인 페이지로 redirect 안내
func (h *Handler) writeGenerationError(w http.ResponseWriter, err error) {
	var genErr *generation.Error
	if !errors.As(err, &genErr) {
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}

	status, ok := generationStatus[genErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	resp := ErrorResponse{Error: genErr.Message, Kind: string(genErr.Kind)}
	if genErr.Kind == generation.Unauthenticated {
		resp.Redirect = h.signInPage
	}
	writeJSON(w, status, resp)
}

// writeAuthError - auth 에러별 status
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, "EmailExists", err.Error())
	case errors.Is(err, auth.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, "AuthDisabled", err.Error())
	default:
		log.Printf("❌ [Studio] Auth provider failure: %v", err)
		writeError(w, http.StatusBadGateway, "AuthProviderError", "Authentication service unavailable")
	}
}
