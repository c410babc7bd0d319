package generation

import (
	"errors"
	"fmt"
)

// ErrorKind - 생성 실패 분류
type ErrorKind string

const (
	InvalidRequest    ErrorKind = "InvalidRequest"
	Unauthenticated   ErrorKind = "Unauthenticated"
	TransportError    ErrorKind = "TransportError"
	BackendError      ErrorKind = "BackendError"
	MalformedResponse ErrorKind = "MalformedResponse"
)

// 페이지 스크립트와 같은 기본 메시지
const (
	unknownErrorMessage = "An unknown error occurred."
	statusMessageFormat = "HTTP error! Status: %d"
)

// Error - Submit이 반환하는 유일한 에러 타입
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status (응답이 없으면 0)
	Message string // 사용자에게 보여줄 메시지
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind - err가 주어진 분류의 generation 에러인지 확인
func IsKind(err error, kind ErrorKind) bool {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind == kind
	}
	return false
}

// KindOf - 분류 추출 (generation 에러가 아니면 "")
func KindOf(err error) ErrorKind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}

func invalidRequest(format string, args ...any) *Error {
	return &Error{Kind: InvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func malformed(status int, format string, args ...any) *Error {
	return &Error{Kind: MalformedResponse, Status: status, Message: fmt.Sprintf(format, args...)}
}
