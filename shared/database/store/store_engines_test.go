package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"portal-backend/shared/database"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/models/submission"
	"portal-backend/shared/database/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func openSQLite(t *testing.T) *store.GormStore {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewGormStore(db)
}

// eachEngine runs fn against the memory store and the gorm store on sqlite.
func eachEngine(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMemoryStore()) })
	t.Run("gorm", func(t *testing.T) { fn(t, openSQLite(t)) })
}

func createUser(t *testing.T, s store.Store, email string, utype models.UserType) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email, Password: "x", Utype: utype, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUsersUniqueEmailAndAdvisor(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		staff := createUser(t, s, "staff@example.com", models.UserTypeStaff)
		customer := createUser(t, s, "c@example.com", models.UserTypeCustomer)

		err := s.Users().Create(ctx, &models.User{Email: "c@example.com", Password: "x", Utype: models.UserTypeCustomer})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		_, err = s.Users().GetByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Users().GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)

		customer.AdvisorID = &staff.ID
		require.NoError(t, s.Users().Update(ctx, customer))

		got, err := s.Users().GetByID(ctx, customer.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Advisor)
		assert.Equal(t, "staff@example.com", got.Advisor.Email)

		staffList, err := s.Users().ListByType(ctx, models.UserTypeStaff)
		require.NoError(t, err)
		require.Len(t, staffList, 1)
		assert.Equal(t, staff.ID, staffList[0].ID)
	})
}

func TestUserCreateAssignsID(t *testing.T) {
	s := openSQLite(t)
	u := &models.User{Email: "noid@example.com", Password: "x", Utype: models.UserTypeCustomer}
	require.NoError(t, s.Users().Create(context.Background(), u))
	assert.NotEqual(t, uuid.Nil, u.ID)
}

func TestTokensOnePerUserAndSingleDelete(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := createUser(t, s, "a@example.com", models.UserTypeCustomer)
		tokens := s.Tokens(auth.PurposeEmailVerification)
		now := time.Now().UTC()

		require.NoError(t, tokens.Create(ctx, &auth.Token{ID: uuid.New(), UserID: u.ID, Token: "one", CreatedAt: now}))
		err := tokens.Create(ctx, &auth.Token{ID: uuid.New(), UserID: u.ID, Token: "two", CreatedAt: now})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		// purposes live in separate tables
		require.NoError(t, s.Tokens(auth.PurposePasswordReset).Create(ctx,
			&auth.Token{ID: uuid.New(), UserID: u.ID, Token: "one", CreatedAt: now}))

		got, err := tokens.GetByValue(ctx, "one")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.UserID)
		assert.WithinDuration(t, now, got.CreatedAt, time.Millisecond)

		require.NoError(t, tokens.Delete(ctx, got.ID))
		assert.ErrorIs(t, tokens.Delete(ctx, got.ID), store.ErrNotFound)
		_, err = tokens.GetByUser(ctx, u.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Tokens(auth.PurposePasswordReset).GetByUser(ctx, u.ID)
		assert.NoError(t, err)
	})
}

func TestTransactionRollsBack(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := createUser(t, s, "a@example.com", models.UserTypeCustomer)

		boom := errors.New("boom")
		err := s.Transaction(ctx, func(tx store.Store) error {
			locked, err := tx.Users().LockByID(ctx, u.ID)
			require.NoError(t, err)
			locked.Verified = true
			require.NoError(t, tx.Users().Update(ctx, locked))
			require.NoError(t, tx.Sessions().Create(ctx, &auth.UserSession{
				UserID: u.ID, SessionID: "sid", ExpiresAt: time.Now().UTC().Add(time.Hour),
			}))
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := s.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.Verified)
		_, err = s.Sessions().GetBySessionID(ctx, "sid")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().LockByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessionsOnePerUser(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := createUser(t, s, "a@example.com", models.UserTypeCustomer)
		expires := time.Now().UTC().Add(time.Hour)

		require.NoError(t, s.Sessions().Create(ctx, &auth.UserSession{UserID: u.ID, SessionID: "sid-1", ExpiresAt: expires}))
		err := s.Sessions().Create(ctx, &auth.UserSession{UserID: u.ID, SessionID: "sid-2", ExpiresAt: expires})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		got, err := s.Sessions().GetByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "sid-1", got.SessionID)

		ids, err := s.Sessions().DeleteByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"sid-1"}, ids)

		ids, err = s.Sessions().DeleteByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestIDSubmissionsLatestAndSubmitter(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := createUser(t, s, "a@example.com", models.UserTypeCustomer)
		subs := s.IDSubmissions()

		first := &submission.IDSubmission{SubmitterID: u.ID, Document: "a.png", Latest: true}
		require.NoError(t, subs.Create(ctx, first))
		require.NoError(t, subs.DemoteLatest(ctx, u.ID))
		second := &submission.IDSubmission{SubmitterID: u.ID, Document: "b.png", Latest: true}
		require.NoError(t, subs.Create(ctx, second))

		latest, err := subs.GetLatest(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)

		byID, err := subs.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, byID.Latest)
		assert.Equal(t, "a@example.com", byID.Submitter.Email)

		pending, err := subs.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)
		assert.Equal(t, "a@example.com", pending[0].Submitter.Email)

		second.Verified = true
		require.NoError(t, subs.Update(ctx, second))
		pending, err = subs.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		all, err := subs.ListBySubmitter(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = subs.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, store.ErrNotFound)

		superseded := &submission.IDSubmission{SubmitterID: u.ID, Document: "c.png"}
		require.NoError(t, subs.Create(ctx, superseded))
		stored, err := subs.GetByID(ctx, superseded.ID)
		require.NoError(t, err)
		assert.False(t, stored.Latest, "a false flag must survive the insert")
	})
}

func TestReportsAndPoliciesPreload(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := createUser(t, s, "a@example.com", models.UserTypeCustomer)

		ins := &insurance.Insurance{
			InsuranceName:   "Household",
			InsuranceKey:    "household",
			InsuranceFields: datatypes.JSON(`["address"]`),
		}
		require.NoError(t, s.Insurances().Create(ctx, ins))
		assert.ErrorIs(t, s.Insurances().Create(ctx, &insurance.Insurance{InsuranceName: "Dup", InsuranceKey: "household"}), store.ErrDuplicate)

		byKey, err := s.Insurances().GetByKey(ctx, "household")
		require.NoError(t, err)
		assert.JSONEq(t, `["address"]`, string(byKey.InsuranceFields))

		policy := &submission.InsuranceSubmission{SubmitterID: u.ID, InsuranceID: ins.ID, PolicyID: "P-1", Active: true, Data: "{}"}
		require.NoError(t, s.InsuranceSubmissions().Create(ctx, policy))
		require.NoError(t, s.DamageReports().Create(ctx, &submission.DamageReport{
			SubmitterID: u.ID, PolicyID: policy.ID, Status: submission.DamageStatusWaiting,
		}))
		require.NoError(t, s.DamageReports().Create(ctx, &submission.DamageReport{
			SubmitterID: u.ID, PolicyID: policy.ID, Status: submission.DamageStatusAccepted, Denied: true,
		}))

		assert.Error(t, s.DamageReports().Create(ctx, &submission.DamageReport{SubmitterID: u.ID, PolicyID: 4242}),
			"report against a missing policy")

		waiting, err := s.DamageReports().ListBySubmitter(ctx, u.ID, store.DamageReportFilter{Status: submission.DamageStatusWaiting})
		require.NoError(t, err)
		require.Len(t, waiting, 1)
		assert.Equal(t, "P-1", waiting[0].Policy.PolicyID)
		assert.Equal(t, "Household", waiting[0].Policy.Insurance.InsuranceName)

		visible, err := s.DamageReports().ListBySubmitter(ctx, u.ID, store.DamageReportFilter{ExcludeDenied: true})
		require.NoError(t, err)
		assert.Len(t, visible, 1)

		active := true
		policies, err := s.InsuranceSubmissions().ListBySubmitter(ctx, u.ID, store.InsuranceSubmissionFilter{Active: &active})
		require.NoError(t, err)
		require.Len(t, policies, 1)
		assert.Equal(t, "Household", policies[0].Insurance.InsuranceName)
		assert.Equal(t, "a@example.com", policies[0].Submitter.Email)

		inactive := false
		none, err := s.InsuranceSubmissions().ListBySubmitter(ctx, u.ID, store.InsuranceSubmissionFilter{Active: &inactive})
		require.NoError(t, err)
		assert.Empty(t, none)

		require.NoError(t, s.InsuranceSubmissions().UpdateData(ctx, policy.ID, `{"a":"b"}`))
		all, err := s.InsuranceSubmissions().ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, `{"a":"b"}`, all[0].Data)
		assert.ErrorIs(t, s.InsuranceSubmissions().UpdateData(ctx, 999, "{}"), store.ErrNotFound)
	})
}

func TestAttemptsRecorded(t *testing.T) {
	eachEngine(t, func(t *testing.T, s store.Store) {
		err := s.Attempts().Record(context.Background(), &auth.AuthAttempt{
			Kind: auth.AttemptLogin, Email: "a@example.com", CreatedAt: time.Now().UTC(),
		})
		assert.NoError(t, err)
	})
}
