package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler возвращает тело запроса с тем же Content-Type.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if ct := r.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()

	var r io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(res.Body)
		require.NoError(t, err)
		defer gr.Close()
		r = gr
	}
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(body)
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		compressBody   bool
		acceptEncoding string
		contentType    string
		wantEncoding   string
	}{
		{
			name:           "json listing is compressed",
			body:           `[{"_id":1,"name":"Wash & fold","price":30}]`,
			acceptEncoding: "gzip",
			contentType:    "application/json",
			wantEncoding:   "gzip",
		},
		{
			name:           "api error with charset",
			body:           `{"msg":"Access denied"}`,
			acceptEncoding: "gzip, deflate",
			contentType:    "application/json; charset=utf-8",
			wantEncoding:   "gzip",
		},
		{
			name:         "client without gzip gets plain body",
			body:         `{"msg":"Route not found"}`,
			contentType:  "application/json",
			wantEncoding: "",
		},
		{
			name:           "uploaded image is served as is",
			body:           "\x89PNG fake",
			acceptEncoding: "gzip",
			contentType:    "image/png",
			wantEncoding:   "",
		},
		{
			name:           "gzipped checkout request",
			body:           `{"serviceIds":[1,2]}`,
			compressBody:   true,
			acceptEncoding: "gzip",
			contentType:    "application/json",
			wantEncoding:   "gzip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reqBody io.Reader = strings.NewReader(tt.body)
			if tt.compressBody {
				reqBody = bytes.NewReader(gzipBytes(t, tt.body))
			}

			req := httptest.NewRequest(http.MethodPost, "/api/orders/checkout", reqBody)
			req.Header.Set("Content-Type", tt.contentType)
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tt.contentType, res.Header.Get("Content-Type"))
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))
			assert.Equal(t, tt.body, readBody(t, res))
		})
	}
}

func TestGzipMiddleware_NoContent(t *testing.T) {
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/services", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Empty(t, w.Body.Bytes())
}

func TestGzipMiddleware_InvalidBody(t *testing.T) {
	called := false
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/wallet/request", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"msg":"Invalid gzip body"}`, w.Body.String())
}
