package services

import (
	"context"
	"net/url"
	"strings"

	"portal-backend/shared/clients"
	"portal-backend/shared/database/models"
)

// tokenMailer sends mails that carry a single-use token link.
type tokenMailer struct {
	notifier    Notifier
	frontendURL string
}

// link points at the frontend page that submits the token back.
func (m tokenMailer) link(token string) string {
	return strings.TrimRight(m.frontendURL, "/") + "/v?token=" + url.QueryEscape(token)
}

func (m tokenMailer) send(ctx context.Context, template clients.Template, user *models.User, token string) error {
	return m.notifier.Send(ctx, template, user.Email, map[string]string{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"link":       m.link(token),
	})
}
