package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const internalErrorMessage = "Internal server error"

// envelope — единый формат ответов API.
type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Data       any                `json:"data,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// sessionEnvelope возвращается регистрацией и входом: user и token на верхнем уровне.
type sessionEnvelope struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	User    userDTO `json:"user"`
	Token   string  `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writePage(w http.ResponseWriter, data any, pagination domain.Pagination) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &pagination})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: status < http.StatusBadRequest, Message: message})
}

// statusFor выбирает HTTP-статус по классу доменной ошибки.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorWriter пишет ошибки в конверте; диагностика видна только вне production.
type errorWriter struct {
	production bool
	logger     *log.Entry
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeMessage(w, reqErr.status, reqErr.msg)
		return
	}

	status := statusFor(err)
	if status < http.StatusInternalServerError {
		writeMessage(w, status, err.Error())
		return
	}

	e.logger.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("request failed")

	body := envelope{Success: false, Message: internalErrorMessage}
	if !e.production {
		body.Message = upstreamMessage(err)
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}

// upstreamMessage возвращает сообщение доменной ошибки класса ErrUpstream.
func upstreamMessage(err error) string {
	for _, known := range []error{domain.ErrNotificationSuspended, domain.ErrNotificationFailed} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return internalErrorMessage
}

// decodeJSON разбирает тело запроса; пустое тело допустимо.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return &requestError{status: http.StatusRequestEntityTooLarge, msg: "Request body too large"}
	}
	return &requestError{status: http.StatusBadRequest, msg: "Invalid JSON body"}
}

// requestError — ошибка разбора запроса до вызова сервисов.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error {
	if e.status == http.StatusBadRequest {
		return domain.ErrValidation
	}
	return nil
}

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

// pageFromQuery читает page и limit из query string.
func pageFromQuery(r *http.Request) domain.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return domain.Page{Number: page, Limit: limit}.Normalize()
}
