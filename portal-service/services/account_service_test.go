package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/clients"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/utils/payload"
	"portal-backend/shared/utils/permission"
)

func registration(email string) *payload.UserPayload {
	return &payload.UserPayload{
		Email:     text(email),
		FirstName: text("Anna"),
		LastName:  text("Muster"),
		Phone:     text("+41 79 123 45 67"),
		Password:  text(testPassword),
	}
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Fields
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	eachEngine(t, func(t *testing.T, f *fixture) {

		created, err := f.accounts.CreateOrLogin(ctx, permission.Anonymous(), registration("anna@example.com"), ClientInfo{IPAddress: "1.2.3.4"})
		require.NoError(t, err)
		assert.True(t, created.Created)
		assert.NotEmpty(t, created.Token)
		assert.Equal(t, "anna@example.com", created.Profile["email"])
		assert.Equal(t, 1, created.Profile["utype"])
		assert.Equal(t, false, created.Profile["verified"])

		mails := f.notifier.sent(clients.TemplateVerifyEmail)
		require.Len(t, mails, 1)
		assert.Contains(t, mails[0].Vars["link"], "https://portal.test/v?token=")

		loggedIn, err := f.accounts.CreateOrLogin(ctx, permission.Anonymous(), &payload.UserPayload{
			Email:    text("anna@example.com"),
			Password: text(testPassword),
		}, ClientInfo{})
		require.NoError(t, err)
		assert.False(t, loggedIn.Created)
		assert.NotEqual(t, created.Token, loggedIn.Token)

		_, err = f.sessions.Resolve(ctx, created.Token)
		assert.Error(t, err, "login replaces the registration session")
		user, err := f.sessions.Resolve(ctx, loggedIn.Token)
		require.NoError(t, err)
		assert.NotNil(t, user.LastLogin)
		assert.Equal(t, 1, f.attemptCount(auth.AttemptLogin))
	})
}

func TestDuplicateRegistrationFailsValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.accounts.CreateOrLogin(ctx, permission.Anonymous(), registration("dup@example.com"), ClientInfo{})
	require.NoError(t, err)

	again := registration("dup@example.com")
	again.Password = text("Different99")
	_, err = f.accounts.CreateOrLogin(ctx, permission.Anonymous(), again, ClientInfo{})
	fields := fieldsOf(t, err)
	assert.Equal(t, []string{msgEmailTaken}, fields["email"])
	assert.Equal(t, []string{msgBadCredentials}, fields["non_field_errors"])
}

func TestCreateOrLoginInvalidPayload(t *testing.T) {
	f := newFixture(t)

	_, err := f.accounts.CreateOrLogin(context.Background(), permission.Anonymous(), &payload.UserPayload{
		Email: text("not-an-email"),
	}, ClientInfo{})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "first_name")
	assert.NotContains(t, fields, "non_field_errors")
}

func TestCreateOrLoginRejectsAuthenticated(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)

	_, err := f.accounts.CreateOrLogin(context.Background(), permission.As(u), registration("x@example.com"), ClientInfo{})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.HTTPCode)
	assert.Equal(t, "You cannot create an account while authenticated.", appErr.Message)
}

func TestUpdateProfileRequiresCurrentPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)

	_, err := f.accounts.UpdateProfile(ctx, f.viewer(t, u), u.ID, &payload.UserPayload{FirstName: text("New")}, ClientInfo{})
	assert.Equal(t, []string{apperrors.MsgRequired}, fieldsOf(t, err)["current_password"])

	_, err = f.accounts.UpdateProfile(ctx, f.viewer(t, u), u.ID, &payload.UserPayload{
		FirstName:       text("New"),
		CurrentPassword: text("wrong-pass1"),
	}, ClientInfo{})
	assert.Equal(t, []string{msgWrongPassword}, fieldsOf(t, err)["current_password_does_not_match"])
}

func TestUpdateProfileMergesSuppliedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer, func(u *models.User) { u.Zipcode = "8000" })

	res, err := f.accounts.UpdateProfile(ctx, f.viewer(t, u), u.ID, &payload.UserPayload{
		FirstName:       text("Renamed"),
		LastName:        text("   "),
		Zipcode:         payload.Optional[string]{Set: true, Null: true},
		CurrentPassword: text(testPassword),
	}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.Profile["first_name"])
	assert.Equal(t, u.LastName, res.Profile["last_name"])
	assert.Equal(t, "8000", res.Profile["zipcode"])
	assert.Empty(t, res.Token)
}

func TestOwnerPasswordChangeReturnsFreshToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)
	old := f.login(t, u)

	res, err := f.accounts.UpdateProfile(ctx, f.viewer(t, u), u.ID, &payload.UserPayload{
		Password:        text("Another456"),
		CurrentPassword: text(testPassword),
	}, ClientInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	_, err = f.sessions.Resolve(ctx, old)
	assert.Error(t, err)
	_, err = f.sessions.Resolve(ctx, res.Token)
	assert.NoError(t, err)
}

func TestStaffPasswordChangeRemovesTargetSession(t *testing.T) {
	ctx := context.Background()
	eachEngine(t, func(t *testing.T, f *fixture) {
		staff := f.user(t, models.UserTypeStaff)
		customer := f.user(t, models.UserTypeCustomer)
		customerToken := f.login(t, customer)
		staffToken := f.login(t, staff)

		res, err := f.accounts.UpdateProfile(ctx, f.viewer(t, staff), customer.ID, &payload.UserPayload{
			Password: text("Another456"),
		}, ClientInfo{})
		require.NoError(t, err)
		assert.Empty(t, res.Token)

		_, err = f.sessions.Resolve(ctx, customerToken)
		assert.Error(t, err)
		_, err = f.sessions.Resolve(ctx, staffToken)
		assert.NoError(t, err, "staff session is untouched")
	})
}

func TestUpdateProfileAccessRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, models.UserTypeCustomer)
	b := f.user(t, models.UserTypeCustomer)

	_, err := f.accounts.UpdateProfile(ctx, f.viewer(t, a), b.ID, &payload.UserPayload{FirstName: text("x")}, ClientInfo{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	_, err = f.accounts.UpdateProfile(ctx, permission.Anonymous(), b.ID, &payload.UserPayload{}, ClientInfo{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestUpdateProfileDropsPrivilegedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)

	res, err := f.accounts.UpdateProfile(ctx, f.viewer(t, u), u.ID, &payload.UserPayload{
		Utype:           payload.Some(7),
		LastLogin:       payload.Some(json.RawMessage(`"2020-01-01T00:00:00Z"`)),
		CurrentPassword: text(testPassword),
	}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Profile["utype"])

	stored, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastLogin)
}

func TestStaffChangesRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	staff := f.user(t, models.UserTypeStaff)
	u := f.user(t, models.UserTypeCustomer)

	res, err := f.accounts.UpdateProfile(ctx, f.viewer(t, staff), u.ID, &payload.UserPayload{Utype: payload.Some(7)}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Profile["utype"])

	_, err = f.accounts.UpdateProfile(ctx, f.viewer(t, staff), u.ID, &payload.UserPayload{Utype: payload.Some(3)}, ClientInfo{})
	assert.Contains(t, fieldsOf(t, err), "utype")
}

func TestUpdateProfileAdvisor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	staff := f.user(t, models.UserTypeStaff)
	advisor := f.user(t, models.UserTypeStaff, withPicture)
	plainStaff := f.user(t, models.UserTypeStaff)
	customer := f.user(t, models.UserTypeCustomer)
	v := f.viewer(t, staff)

	_, err := f.accounts.UpdateProfile(ctx, v, customer.ID, &payload.UserPayload{Advisor: text(customer.ID.String())}, ClientInfo{})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"advisor_does_not_exist": msgAdvisorMissing}, appErr.Body())
	assert.Equal(t, 400, appErr.HTTPCode)

	_, err = f.accounts.UpdateProfile(ctx, v, customer.ID, &payload.UserPayload{Advisor: text("garbage")}, ClientInfo{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = f.accounts.UpdateProfile(ctx, v, customer.ID, &payload.UserPayload{Advisor: text(plainStaff.ID.String())}, ClientInfo{})
	assert.Equal(t, []string{msgAdvisorNeedPicture}, fieldsOf(t, err)["advisor"])

	res, err := f.accounts.UpdateProfile(ctx, v, customer.ID, &payload.UserPayload{Advisor: text(advisor.ID.String())}, ClientInfo{})
	require.NoError(t, err)
	block, ok := res.Profile["advisor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, advisor.Email, block["email"])
	assert.Equal(t, "https://files.test/"+advisor.Picture, block["picture"])
}

func TestUpdateProfileEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	eachEngine(t, func(t *testing.T, f *fixture) {
		a := f.user(t, models.UserTypeCustomer)
		b := f.user(t, models.UserTypeCustomer)

		_, err := f.accounts.UpdateProfile(ctx, f.viewer(t, a), a.ID, &payload.UserPayload{
			Email:           text(b.Email),
			CurrentPassword: text(testPassword),
		}, ClientInfo{})
		assert.Equal(t, []string{msgEmailTaken}, fieldsOf(t, err)["email"])
	})
}

func TestEmailIsStoredTrimmed(t *testing.T) {
	ctx := context.Background()
	eachEngine(t, func(t *testing.T, f *fixture) {

		created, err := f.accounts.CreateOrLogin(ctx, permission.Anonymous(), registration("  anna@example.com "), ClientInfo{})
		require.NoError(t, err)
		assert.Equal(t, "anna@example.com", created.Profile["email"])

		stored, err := f.store.Users().GetByEmail(ctx, "anna@example.com")
		require.NoError(t, err)

		loggedIn, err := f.accounts.CreateOrLogin(ctx, permission.Anonymous(), &payload.UserPayload{
			Email:    text("anna@example.com"),
			Password: text(testPassword),
		}, ClientInfo{})
		require.NoError(t, err)
		assert.False(t, loggedIn.Created)

		_, err = f.accounts.UpdateProfile(ctx, f.viewer(t, stored), stored.ID, &payload.UserPayload{
			Email:           text(" anna.muster@example.com"),
			CurrentPassword: text(testPassword),
		}, ClientInfo{})
		require.NoError(t, err)
		_, err = f.store.Users().GetByEmail(ctx, "anna.muster@example.com")
		assert.NoError(t, err)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	staff := f.user(t, models.UserTypeStaff)
	f.user(t, models.UserTypeStaff)
	customer := f.user(t, models.UserTypeCustomer)

	out, err := f.accounts.ListUsers(ctx, f.viewer(t, staff))
	require.NoError(t, err)
	triple, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, triple, 3)
	assert.Equal(t, staff.Email, triple[0].(map[string]any)["email"])
	assert.Len(t, triple[1], 2)
	assert.Len(t, triple[2], 1)

	own, err := f.accounts.ListUsers(ctx, f.viewer(t, customer))
	require.NoError(t, err)
	assert.Equal(t, customer.Email, own.(map[string]any)["email"])

	_, err = f.accounts.ListUsers(ctx, permission.Anonymous())
	assert.Error(t, err)
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	staff := f.user(t, models.UserTypeStaff)
	customer := f.user(t, models.UserTypeCustomer)
	other := f.user(t, models.UserTypeCustomer)

	view, err := f.accounts.GetUser(ctx, f.viewer(t, staff), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.Email, view["email"])

	_, err = f.accounts.GetUser(ctx, f.viewer(t, other), customer.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	_, err = f.accounts.GetUser(ctx, f.viewer(t, staff), other.ID)
	require.NoError(t, err)
}
