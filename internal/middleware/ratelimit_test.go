package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"queuedesk/internal/config"
)

func rateLimitedRouter(rl config.RateLimitingConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Security: config.SecurityConfig{RateLimiting: rl}}
	r := gin.New()
	r.Use(RateLimitMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRateLimitMiddleware_EnforcesBurst(t *testing.T) {
	r := rateLimitedRouter(config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             2,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two allowed, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third rejected, got %v", codes)
	}
}

func TestRateLimitMiddleware_PerClientBuckets(t *testing.T) {
	r := rateLimitedRouter(config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             1,
	})

	send := func(addr string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first client first request: %d", code)
	}
	if code := send("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second request: %d", code)
	}
	// A different client has its own bucket.
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("second client first request: %d", code)
	}
}

func TestRateLimitMiddleware_DisabledNoops(t *testing.T) {
	r := rateLimitedRouter(config.RateLimitingConfig{Enabled: false})

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, w.Code)
		}
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Security: config.SecurityConfig{CORS: config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://desk.example.com"},
		AllowedMethods: []string{"GET", "POST"},
	}}}
	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("expected allow-origin header")
	}
}
