package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/karte-api/internal/config"
	"github.com/jwalitptl/karte-api/internal/locale"
	"github.com/jwalitptl/karte-api/pkg/auth"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenService("secret", "karte")
	staffID := uuid.New()

	r := gin.New()
	r.Use(NewAuthMiddleware(tokens).Authenticate())
	r.GET("/me", func(c *gin.Context) {
		id := StaffID(c)
		if id == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.String())
	})

	valid, err := tokens.Issue(staffID.String(), "", time.Minute)
	require.NoError(t, err)
	desk, err := tokens.Issue("reception-desk", "", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
		{"staff subject", "Bearer " + valid, http.StatusOK, staffID.String()},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, staffID.String()},
		{"non-staff subject", "Bearer " + desk, http.StatusOK, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := perform(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
			} else {
				resp := decode(t, w)
				assert.False(t, resp.Success)
				assert.Equal(t, "unauthorized", resp.Error.Message)
			}
		})
	}
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, ClientTTL: time.Minute})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return perform(r, req).Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestTimeoutWithoutResponse(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	w := perform(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "request timeout", decode(t, w).Error.Message)

	w = perform(r, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLocale(t *testing.T) {
	r := gin.New()
	r.Use(Locale())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, locale.FromContext(c.Request.Context()).String())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w := perform(r, req)
	assert.Equal(t, "en", w.Body.String())
	assert.Equal(t, "en", w.Header().Get("Content-Language"))

	w = perform(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "ja", w.Body.String())
}

type noteBody struct {
	Content string `json:"content" binding:"required"`
	Kind    string `json:"kind" binding:"omitempty,notekind"`
}

func TestValidationRendersBindErrors(t *testing.T) {
	r := gin.New()
	r.Use(Validation(DefaultValidationConfig()))
	r.POST("/notes", func(c *gin.Context) {
		var body noteBody
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypeBind)
			return
		}
		c.Status(http.StatusCreated)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return perform(r, req)
	}

	w := post(`{"content":"x","kind":"memo"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = post(`{"kind":"voice"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	msg := decode(t, w).Error.Message
	assert.Contains(t, msg, "content: field is required")
	assert.Contains(t, msg, "kind: must be one of memo, record, image")

	w = post(`{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request", decode(t, w).Error.Message)
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(HeaderXRequestID, "req-1")
	w := perform(r, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderXRequestID))
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "internal server error", resp.Error.Message)

	w = perform(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderXRequestID))
	assert.NoError(t, err)
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = perform(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://clinic.example")
	w := perform(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}
