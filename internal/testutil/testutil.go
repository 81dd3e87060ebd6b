package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookPayload is a complete create payload for tests.
func BookPayload(title string) map[string]any {
	return map[string]any{
		"title":           title,
		"author":          "Octavia E. Butler",
		"genre":           "Science Fiction",
		"publicationDate": "1993-10-01",
		"edition":         "First Edition",
		"summary":         "Lauren Olamina and Earthseed.",
	}
}

// NewRequest creates a new HTTP request for testing. A string body is sent
// as is; any other non-nil body is JSON encoded.
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(b)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// Data returns the data object of an envelope, or nil.
func (r RecordResponse) Data() map[string]interface{} {
	data, _ := r.Body["data"].(map[string]interface{})
	return data
}

// Do serves req with h and records the response.
func Do(h http.Handler, req *http.Request) RecordResponse {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return RecordHTTPResponse(w)
}
