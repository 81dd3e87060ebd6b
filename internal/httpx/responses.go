package httpx

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope written for every API response.
type Response struct {
	Status     string         `json:"status"`
	Code       int            `json:"code"`
	Message    string         `json:"message"`
	Data       any            `json:"data,omitempty"`
	Count      *int64         `json:"count,omitempty"`
	Pagination any            `json:"pagination,omitempty"`
	Headers    *RateLimitInfo `json:"headers,omitempty"`
	Error      *ErrorBody     `json:"error,omitempty"`
}

type ErrorBody struct {
	Details any `json:"details"`
}

// RateLimitInfo is the rate limiter state echoed back to clients.
type RateLimitInfo struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     string `json:"reset"`
}

// Option decorates a success envelope.
type Option func(*Response)

func WithData(data any) Option {
	return func(resp *Response) { resp.Data = data }
}

func WithCount(n int64) Option {
	return func(resp *Response) { resp.Count = &n }
}

func WithPagination(p any) Option {
	return func(resp *Response) { resp.Pagination = p }
}

// WithRateLimit echoes the rate limiter state captured for r, if any.
func WithRateLimit(r *http.Request) Option {
	return func(resp *Response) {
		if info, ok := RateLimitFrom(r); ok {
			resp.Headers = &info
		}
	}
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func JSONSuccess(w http.ResponseWriter, statusCode int, message string, opts ...Option) {
	resp := Response{Status: StatusSuccess, Code: statusCode, Message: message}
	for _, opt := range opts {
		opt(&resp)
	}
	JSON(w, statusCode, resp)
}

// JSONError writes an error envelope. Details, when not nil, are nested under
// error.details.
func JSONError(w http.ResponseWriter, statusCode int, message string, details any) {
	resp := Response{Status: StatusError, Code: statusCode, Message: message}
	if details != nil {
		resp.Error = &ErrorBody{Details: details}
	}
	JSON(w, statusCode, resp)
}

// JSONMessage writes a bare {"message": ...} body, used outside the API.
func JSONMessage(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, map[string]string{"message": message})
}

// DecodeJSON reads the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
