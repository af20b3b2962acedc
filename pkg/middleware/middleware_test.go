package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"uid": CurrentUID(c)})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/hook", APIKeyAuthMiddleware("s3cr3t"), okHandler)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/hook?api_key=s3cr3t", nil)).Code)

	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-API-KEY", "s3cr3t")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodPost, "/hook?api_key=nope", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodPost, "/hook", nil)).Code)

	assert.Panics(t, func() { APIKeyAuthMiddleware("") })
}

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	uid, ok := f[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"role": "agent"}}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", FirebaseAuthMiddleware(fakeVerifier{"good": "uid-7"}, false), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid": "uid-7"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/me", nil)).Code)
}

func TestFirebaseAuthMiddlewareDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/me", FirebaseAuthMiddleware(nil, true), okHandler)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid": "dev-user"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/hook", RateLimit(0.001, 2), okHandler)

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodPost, "/hook", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	open := gin.New()
	open.POST("/hook", RateLimit(0, 0), okHandler)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodPost, "/hook", nil)).Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, httptest.NewRequest(http.MethodGet, "/missing/1", nil))
	assert.Contains(t, buf.String(), `"path":"/missing/:id"`)
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"level":"warning"`)
}
