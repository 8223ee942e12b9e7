package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("X-Request-IDが無い場合はUUIDが生成されること", func(t *testing.T) {
		t.Parallel()

		var got string
		router := gin.New()
		router.Use(RequestID())
		router.GET("/", func(c *gin.Context) {
			got = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("リクエストIDがUUIDではない: %q", got)
		}
		if h := w.Header().Get(HeaderKeyRequestID); h != got {
			t.Errorf("X-Request-ID = %q, want %q", h, got)
		}
	})

	t.Run("受信したX-Request-IDがそのまま使われること", func(t *testing.T) {
		t.Parallel()

		var got string
		router := gin.New()
		router.Use(RequestID())
		router.GET("/", func(c *gin.Context) {
			got = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderKeyRequestID, "frontend-req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got != "frontend-req-42" {
			t.Errorf("リクエストID = %q, want %q", got, "frontend-req-42")
		}
		if h := w.Header().Get(HeaderKeyRequestID); h != "frontend-req-42" {
			t.Errorf("X-Request-ID = %q, want %q", h, "frontend-req-42")
		}
	})

	t.Run("長すぎるX-Request-IDは破棄されUUIDが生成されること", func(t *testing.T) {
		t.Parallel()

		var got string
		router := gin.New()
		router.Use(RequestID())
		router.GET("/", func(c *gin.Context) {
			got = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderKeyRequestID, strings.Repeat("a", maxRequestIDLength+1))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("リクエストIDがUUIDではない: %q", got)
		}
	})

	t.Run("ミドルウェア未適用の場合は空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		got := "unset"
		router := gin.New()
		router.GET("/", func(c *gin.Context) {
			got = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got != "" {
			t.Errorf("リクエストID = %q, want empty string", got)
		}
	})
}
