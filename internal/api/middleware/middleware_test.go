package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

func newTestEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/v1/ingredients", ok)
	r.POST("/api/v1/ingredients/generate", ok)
	r.GET("/health", ok)
	return r
}

func serve(r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitBlocksAfterCapacity(t *testing.T) {
	r := newTestEngine(RateLimit(2, time.Minute))

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodGet, "/api/v1/ingredients", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	w := serve(r, http.MethodGet, "/api/v1/ingredients", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	var resp common.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != common.ErrCodeTooManyRequests {
		t.Errorf("code = %q, want %q", resp.Code, common.ErrCodeTooManyRequests)
	}
}

func TestRateLimitExemptsHealthProbes(t *testing.T) {
	r := newTestEngine(RateLimit(1, time.Minute))

	// 用光配額
	serve(r, http.MethodGet, "/api/v1/ingredients", "")
	serve(r, http.MethodGet, "/api/v1/ingredients", "")

	for i := 0; i < 5; i++ {
		if w := serve(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Fatalf("probe %d: status = %d, want 200 despite exhausted quota", i+1, w.Code)
		}
	}
}

func TestBodySizeLimitRejectsOversizedPost(t *testing.T) {
	r := newTestEngine(BodySizeLimit(16))

	w := serve(r, http.MethodPost, "/api/v1/ingredients/generate",
		`{"description": "way past sixteen bytes"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	var resp common.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != common.ErrCodePayloadTooLarge {
		t.Errorf("code = %q, want %q", resp.Code, common.ErrCodePayloadTooLarge)
	}
}

func TestBodySizeLimitAllowsSmallPost(t *testing.T) {
	r := newTestEngine(BodySizeLimit(1 << 10))
	if w := serve(r, http.MethodPost, "/api/v1/ingredients/generate", `{"d":1}`); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBodySizeLimitIgnoresReadMethods(t *testing.T) {
	r := newTestEngine(BodySizeLimit(1))
	if w := serve(r, http.MethodGet, "/api/v1/ingredients", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (GET not body-limited)", w.Code)
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	if !rl.Allow() {
		t.Fatal("first request should pass")
	}
	if rl.Allow() {
		t.Fatal("second immediate request should be blocked")
	}
	time.Sleep(25 * time.Millisecond)
	if !rl.Allow() {
		t.Error("request after refill window should pass")
	}
}
