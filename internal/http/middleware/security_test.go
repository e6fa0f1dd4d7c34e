package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecurity(t *testing.T, opt SecurityOptions, pre gin.HandlerFunc, req *http.Request) http.Header {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/reports/summary", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecurity(t, SecurityOptions{EnableHSTS: true}, nil,
		httptest.NewRequest(http.MethodGet, "/reports/summary", nil))

	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security", "Access-Control-Expose-Headers"} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s: %q", k, h.Get(k))
		}
	}
}

func TestSecurityHeaders_ExposeRequestID(t *testing.T) {
	withRID := func(existing string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Header(requestIDHeader, "rid-1")
			if existing != "" {
				c.Header("Access-Control-Expose-Headers", existing)
			}
			c.Next()
		}
	}
	cases := map[string]string{
		"":                             "X-Request-ID",
		"Content-Length":               "Content-Length, X-Request-ID",
		"X-Request-ID, Content-Length": "X-Request-ID, Content-Length",
	}
	for existing, want := range cases {
		h := serveSecurity(t, SecurityOptions{}, withRID(existing),
			httptest.NewRequest(http.MethodGet, "/reports/summary", nil))
		if got := h.Get("Access-Control-Expose-Headers"); got != want {
			t.Errorf("existing %q: expose = %q; want %q", existing, got, want)
		}
	}
}

func TestSecurityHeaders_PolicyNoStoreHSTS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
	req.TLS = &tls.ConnectionState{}
	h := serveSecurity(t, SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour, NoStore: true, EnablePolicy: true}, nil, req)

	if h.Get("Strict-Transport-Security") != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", h.Get("Strict-Transport-Security"))
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("cache headers: %#v", h)
	}
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers: %#v", h)
	}

	req = httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	h = serveSecurity(t, SecurityOptions{EnableHSTS: true}, nil, req)
	if h.Get("Strict-Transport-Security") != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default HSTS via proxy = %q", h.Get("Strict-Transport-Security"))
	}
}
