package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header(requestIDHeader, "rid-resp")
		c.Next()
	})
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/profiles/search", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "q=climbing&contact=a.b+tag@example.com&phone=555-123-4567&near=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/profiles/search?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Client-Note", "mail a@b.com for 555-123-4567")
	req.Header.Set(requestIDHeader, "rid-req")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"path":"/profiles/search"`,
		`"request_id":"rid-resp"`,
		`q=climbing&contact=[REDACTED:email]&phone=[REDACTED:phone]&near=[REDACTED:id]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Client-Note":"mail [REDACTED:email] for [REDACTED:phone]"`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("log missing %s:\n%s", want, logs)
		}
	}
	for _, leak := range []string{"topsecret", "shhh", "example.com"} {
		if strings.Contains(logs, leak) {
			t.Fatalf("%q leaked: %s", leak, logs)
		}
	}
}

func TestRedactingLogger_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusCreated, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusTooManyRequests, "warn"},
		{http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range cases {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RedactingLogger(RedactOptions{}))
		r.POST("/likes", func(c *gin.Context) { c.Status(tc.status) })

		// Without a response header the request header supplies request_id.
		req := httptest.NewRequest(http.MethodPost, "/likes", nil)
		req.Header.Set(requestIDHeader, "rid-like")
		r.ServeHTTP(httptest.NewRecorder(), req)

		logs := buf.String()
		if !strings.Contains(logs, `"level":"`+tc.level+`"`) || !strings.Contains(logs, `"request_id":"rid-like"`) {
			t.Fatalf("status %d: %s", tc.status, logs)
		}
	}
}

func TestRedactingLogger_MasksAccessTokenAndLogsUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskQuery: []string{"Sig"}}))
	r.Use(Auth(AuthOptions{DevHeader: true}))
	r.GET("/realtime/ws", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inner")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/realtime/ws?access_token=eyJhbGciOi.secret&sig=zzsig&v=2", nil)
	req.Header.Set(HeaderDevUserID, "u-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if strings.Contains(logs, "eyJhbGciOi") || strings.Contains(logs, "zzsig") {
		t.Fatalf("token leaked into logs: %s", logs)
	}
	if !strings.Contains(logs, `access_token=[REDACTED]&sig=[REDACTED]&v=2`) {
		t.Fatalf("expected masked query, got: %s", logs)
	}
	// The inner log line carries the user added by Auth.
	if !strings.Contains(logs, `"user_id":"u-42","message":"inner"`) {
		t.Fatalf("request-scoped logger missing user_id: %s", logs)
	}
	if !strings.Contains(logs, `"message":"http_request"`) || !strings.Contains(logs, `"user_id":"u-42"`) {
		t.Fatalf("access log missing user: %s", logs)
	}
}

func TestRedactingLogger_GinErrorsLogAtError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/bad", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusBadRequest)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"errors":"Error #01: boom`) {
		t.Fatalf("expected error-level log with gin errors, got: %s", logs)
	}
}

func TestMaskQueryParams(t *testing.T) {
	names := map[string]struct{}{"access_token": {}}
	cases := map[string]string{
		"":                      "",
		"a=1":                   "a=1",
		"ACCESS_TOKEN=x&b":      "ACCESS_TOKEN=[REDACTED]&b",
		"b=2&access_token=&c=3": "b=2&access_token=[REDACTED]&c=3",
	}
	for in, want := range cases {
		if got := maskQueryParams(in, names); got != want {
			t.Fatalf("maskQueryParams(%q)=%q want %q", in, got, want)
		}
	}
}
