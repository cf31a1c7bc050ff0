package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gopkg.in/gomail.v2"

	"portal-backend/notification-service/config"
	"portal-backend/notification-service/services"
)

type countingDialer struct{ sent int }

func (d *countingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent += len(m)
	return nil
}

func newRouter(d services.MailDialer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	email := services.NewEmailServiceWithDialer(d, services.NewTemplateService(), "noreply@portal.test", "Portal",
		config.EmailConfig{Enabled: true, RetryAttempts: 1})

	router := gin.New()
	Register(router, NewEmailHandler(email), NewWebSocketHandler(services.NewHub(nil)))
	return router
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSendEmailEndpoint(t *testing.T) {
	d := &countingDialer{}
	router := newRouter(d)

	w := post(router, "/api/notifications/email/send",
		`{"template":"reset_password","recipient":"anna@example.com","vars":{"first_name":"Anna","link":"https://x/v?token=1"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, d.sent)

	w = post(router, "/api/notifications/email/send", `{"template":"reset_password","recipient":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(router, "/api/notifications/email/send", `{"template":"newsletter","recipient":"anna@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, d.sent)
}

func TestPushEndpoint(t *testing.T) {
	router := newRouter(&countingDialer{})

	w := post(router, "/ws/send", `{"channel":"staff","message":{"type":"event","event":"id_document.submitted"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"delivered":0}`, w.Body.String())

	w = post(router, "/ws/send", `{"message":{"type":"event"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(router, "/ws/send", `{"channel":"staff"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router := newRouter(&countingDialer{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
