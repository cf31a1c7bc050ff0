package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsTemplateRequest(t *testing.T) {
	var got SendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/email/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	nc := NewNotificationClientWithURL(srv.URL)
	err := nc.Send(context.Background(), TemplateVerifyEmail, "anna@example.com", map[string]string{"token": "abc"})
	require.NoError(t, err)

	assert.Equal(t, TemplateVerifyEmail, got.Template)
	assert.Equal(t, "anna@example.com", got.Recipient)
	assert.Equal(t, "abc", got.Vars["token"])
}

func TestSendReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewNotificationClientWithURL(srv.URL).Send(context.Background(), TemplateResetPassword, "a@example.com", nil)
	assert.Error(t, err)
}

func TestPushTargetsChannel(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	err := NewNotificationClientWithURL(srv.URL).Push(context.Background(), ChannelStaff, "id_document.submitted", map[string]any{"submission_id": "3"})
	require.NoError(t, err)
	assert.Equal(t, ChannelStaff, got.Channel)
	require.NotNil(t, got.Message)
	assert.Equal(t, "id_document.submitted", got.Message.Event)
}
