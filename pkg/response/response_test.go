package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func TestEnvelopeHelpers(t *testing.T) {
	tests := []struct {
		name       string
		handler    gin.HandlerFunc
		wantStatus int
		wantCode   int
	}{
		{"success", func(c *gin.Context) { Success(c, gin.H{"owner": "stampede"}) }, http.StatusOK, 0},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": 1}) }, http.StatusCreated, 0},
		{"bad request", func(c *gin.Context) { BadRequest(c, "invalid input") }, http.StatusBadRequest, 400},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "login required") }, http.StatusUnauthorized, 401},
		{"app not found", func(c *gin.Context) { Error(c, NewNotFound("channel not found")) }, http.StatusNotFound, 404},
		{"app unauthorized", func(c *gin.Context) { Error(c, NewUnauthorized("invalid credentials")) }, http.StatusUnauthorized, 401},
		{"app server error", func(c *gin.Context) { Error(c, NewServerError("boom")) }, http.StatusInternalServerError, 500},
		{"not found", func(c *gin.Context) { NotFound(c, "channel not found") }, http.StatusNotFound, 404},
		{"server error", func(c *gin.Context) { ServerError(c, "boom") }, http.StatusInternalServerError, 500},
		{"app error", func(c *gin.Context) { Error(c, NewBadRequest("validation failed")) }, http.StatusBadRequest, 400},
		{"generic error", func(c *gin.Context) { Error(c, errors.New("something went wrong")) }, http.StatusInternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(tt.handler)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestAck(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Ack(c, http.StatusBadRequest, "missing owner, repo or branch")
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := w.Body.String(); got != `{"status":"missing owner, repo or branch"}` {
		t.Errorf("body = %s", got)
	}
}

func TestRawJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"stored payload", []byte(`{"b": 1,  "a":[2]}`), `{"b": 1,  "a":[2]}`},
		{"nothing stored", nil, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) { RawJSON(c, tt.raw) })
			if w.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("repository not found")
	if err.Error() != "repository not found" {
		t.Errorf("expected 'repository not found', got %q", err.Error())
	}
}
