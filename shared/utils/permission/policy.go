package permission

import (
	"encoding/json"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/database/models"
	"portal-backend/shared/utils/payload"

	"github.com/google/uuid"
)

// Viewer is the actor behind a request. A nil User means anonymous.
type Viewer struct {
	User *models.User
}

func Anonymous() Viewer { return Viewer{} }

func As(user *models.User) Viewer { return Viewer{User: user} }

func (v Viewer) IsAnonymous() bool { return v.User == nil }

func (v Viewer) IsStaff() bool { return v.User.IsStaff() }

// Is reports whether the viewer is the user with the given id.
func (v Viewer) Is(id uuid.UUID) bool {
	return v.User != nil && v.User.ID == id
}

type Action string

const (
	ActionCreateOrLogin            Action = "create_or_login"
	ActionRequestPasswordReset     Action = "request_password_reset"
	ActionResetPassword            Action = "reset_password"
	ActionRequestEmailVerification Action = "request_email_verification"
	ActionVerifyEmail              Action = "verify_email"
	ActionListUsers                Action = "list_users"
	ActionViewUser                 Action = "view_user"
	ActionUpdateUser               Action = "update_user"
	ActionListIDDocuments          Action = "list_id_documents"
	ActionSubmitIDDocument         Action = "submit_id_document"
	ActionVerifyIDDocument         Action = "verify_id_document"
	ActionListUserIDDocuments      Action = "list_user_id_documents"
)

const (
	msgNotAuthenticated    = "Authentication credentials were not provided."
	msgForbidden           = "You do not have permission to perform this action."
	msgCreateWhileAuthed   = "You cannot create an account while authenticated."
	msgAnonymousOnly       = "You cannot use this while authenticated."
	msgVerifyNeedsLoggedIn = "You must be authenticated in order to verify your email address."
)

// Authorize decides whether viewer may perform action on target. target is
// uuid.Nil for actions that do not address a specific user.
func Authorize(v Viewer, action Action, target uuid.UUID) error {
	switch action {
	case ActionCreateOrLogin:
		if !v.IsAnonymous() {
			return apperrors.Forbidden(msgCreateWhileAuthed)
		}
		return nil

	case ActionRequestPasswordReset, ActionResetPassword:
		if !v.IsAnonymous() {
			return apperrors.PermissionDenied(msgAnonymousOnly)
		}
		return nil

	case ActionRequestEmailVerification, ActionVerifyEmail:
		if v.IsAnonymous() {
			return apperrors.PermissionDenied(msgVerifyNeedsLoggedIn)
		}
		return nil
	}

	if v.IsAnonymous() {
		return apperrors.Forbidden(msgNotAuthenticated)
	}

	switch action {
	case ActionListUsers, ActionListIDDocuments, ActionSubmitIDDocument:
		return nil

	case ActionViewUser, ActionUpdateUser:
		if v.IsStaff() || v.Is(target) {
			return nil
		}
		return apperrors.Forbidden(msgForbidden)

	case ActionVerifyIDDocument, ActionListUserIDDocuments:
		if v.IsStaff() {
			return nil
		}
		return apperrors.Forbidden(msgForbidden)
	}

	return apperrors.Forbidden(msgForbidden)
}

// SanitizeUserUpdate silently drops fields the viewer may not write:
// last_login always, utype unless the viewer is staff.
func SanitizeUserUpdate(v Viewer, p *payload.UserPayload) {
	p.LastLogin = payload.Optional[json.RawMessage]{}
	if !v.IsStaff() {
		p.Utype = payload.Optional[int]{}
	}
}
