package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/middleware"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EPAYMENT:
		return http.StatusPaymentRequired // 402
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

// errorBody is the JSON error envelope returned by every API endpoint.
type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// ErrorResponse writes a structured JSON error response derived from a
// domain error. Internal errors are logged with the underlying cause but
// only the safe message leaves the server.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	if status >= 500 {
		logger.Error("request failed", "error", err, "code", code, "status", status)
	} else {
		logger.Info("request rejected", "error", err, "code", code, "status", status)
	}

	var body errorBody
	body.Error.Code = code
	body.Error.Message = domain.ErrorMessage(err)
	body.Error.RequestID = domain.RequestIDFromContext(r.Context())

	JSON(w, status, body)
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a request body into dst, limiting body size to
// keep a hostile client from exhausting memory.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Errorf(domain.EINVALID, "handler.decode", "Invalid request body")
	}
	return nil
}
