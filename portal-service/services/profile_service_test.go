package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/models/submission"
)

func TestDetailOmitsBlocksWithoutRows(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)

	view, err := f.profiles.BuildDetail(context.Background(), u)
	require.NoError(t, err)

	for _, key := range []string{"advisor", "damagereports", "id_document", "insurances"} {
		assert.NotContains(t, view, key)
	}
	for _, key := range []string{"id", "email", "first_name", "last_name", "phone", "utype", "verified", "address1", "address2", "zipcode"} {
		assert.Contains(t, view, key)
	}
}

type profileRows struct {
	activePolicy   *submission.InsuranceSubmission
	inactivePolicy *submission.InsuranceSubmission
	waitingReport  *submission.DamageReport
	acceptedReport *submission.DamageReport
	latestID       *submission.IDSubmission
}

func seedProfileRows(t *testing.T, f *fixture, u *models.User) profileRows {
	t.Helper()
	ctx := context.Background()

	ins := &insurance.Insurance{InsuranceName: "Household", InsuranceKey: "household-" + u.ID.String()}
	require.NoError(t, f.store.Insurances().Create(ctx, ins))

	rows := profileRows{
		activePolicy:   &submission.InsuranceSubmission{SubmitterID: u.ID, InsuranceID: ins.ID, PolicyID: "P-1", Active: true, Data: `{"rooms": 3}`},
		inactivePolicy: &submission.InsuranceSubmission{SubmitterID: u.ID, InsuranceID: ins.ID, PolicyID: "P-2", Data: `{'rooms': '4'}`},
	}
	deniedPolicy := &submission.InsuranceSubmission{SubmitterID: u.ID, InsuranceID: ins.ID, PolicyID: "P-3", Denied: true}
	for _, p := range []*submission.InsuranceSubmission{rows.activePolicy, rows.inactivePolicy, deniedPolicy} {
		require.NoError(t, f.store.InsuranceSubmissions().Create(ctx, p))
	}

	rows.waitingReport = &submission.DamageReport{SubmitterID: u.ID, PolicyID: rows.activePolicy.ID, Status: submission.DamageStatusWaiting}
	rows.acceptedReport = &submission.DamageReport{SubmitterID: u.ID, PolicyID: rows.activePolicy.ID, Status: submission.DamageStatusAccepted}
	deniedReport := &submission.DamageReport{SubmitterID: u.ID, PolicyID: rows.activePolicy.ID, Status: submission.DamageStatusDeclined, Denied: true}
	for _, r := range []*submission.DamageReport{rows.waitingReport, rows.acceptedReport, deniedReport} {
		require.NoError(t, f.store.DamageReports().Create(ctx, r))
	}

	require.NoError(t, f.store.IDSubmissions().Create(ctx, &submission.IDSubmission{SubmitterID: u.ID, Document: "old.png"}))
	rows.latestID = &submission.IDSubmission{SubmitterID: u.ID, Document: "id-documents/new.png", Latest: true}
	require.NoError(t, f.store.IDSubmissions().Create(ctx, rows.latestID))
	return rows
}

func TestBuildDetailBlocks(t *testing.T) {
	eachEngine(t, func(t *testing.T, f *fixture) {
		advisor := f.user(t, models.UserTypeStaff, withPicture)
		u := f.user(t, models.UserTypeCustomer, func(u *models.User) { u.AdvisorID = &advisor.ID })
		rows := seedProfileRows(t, f, u)

		view, err := f.profiles.BuildDetail(context.Background(), u)
		require.NoError(t, err)

		adv := view["advisor"].(map[string]any)
		assert.Equal(t, advisor.Email, adv["email"])
		assert.Contains(t, adv, "picture")

		reports := view["damagereports"].([]map[string]any)
		require.Len(t, reports, 2)
		assert.Equal(t, rows.waitingReport.ID, reports[0]["id"])
		assert.Equal(t, "w", reports[0]["status"])
		assert.Equal(t, map[string]any{"id": rows.activePolicy.ID, "name": "Household", "policy_id": "P-1"}, reports[0]["policy"])

		doc := view["id_document"].(map[string]any)
		assert.Equal(t, "https://files.test/id-documents/new.png", doc["url"])
		assert.Equal(t, false, doc["verified"])

		policies := view["insurances"].([]map[string]any)
		require.Len(t, policies, 2)
		assert.Equal(t, "Household", policies[0]["insurance"])
		assert.Equal(t, u.Email, policies[0]["submitter"])
		assert.Equal(t, map[string]any{"active": true}, policies[0]["status"])
		assert.Equal(t, map[string]any{"rooms": float64(3)}, policies[0]["data"])
		assert.Equal(t, map[string]any{"rooms": "4"}, policies[1]["data"])
	})
}

func TestBuildBasicBlocks(t *testing.T) {
	eachEngine(t, func(t *testing.T, f *fixture) {
		u := f.user(t, models.UserTypeCustomer, withPicture)
		rows := seedProfileRows(t, f, u)

		view, err := f.profiles.BuildBasic(context.Background(), u)
		require.NoError(t, err)

		assert.NotContains(t, view, "picture", "customers never expose a picture in lists")
		assert.NotContains(t, view, "address1")
		assert.Equal(t, []map[string]any{{"id": rows.waitingReport.ID}}, view["damagereports"])
		assert.Equal(t, map[string]any{"id": rows.latestID.ID, "verified": false}, view["id_document"])
		assert.Equal(t, []map[string]any{{"id": rows.inactivePolicy.ID}}, view["insurances"])

		staff := f.user(t, models.UserTypeStaff, withPicture)
		staffView, err := f.profiles.BuildBasic(context.Background(), staff)
		require.NoError(t, err)
		assert.Equal(t, "https://files.test/"+staff.Picture, staffView["picture"])
	})
}

func TestAdvisorWithoutPictureIsTolerated(t *testing.T) {
	f := newFixture(t)
	advisor := f.user(t, models.UserTypeStaff)
	u := f.user(t, models.UserTypeCustomer, func(u *models.User) { u.AdvisorID = &advisor.ID })

	view, err := f.profiles.BuildDetail(context.Background(), u)
	require.NoError(t, err)
	adv := view["advisor"].(map[string]any)
	assert.NotContains(t, adv, "picture")
	assert.Equal(t, advisor.FirstName, adv["first_name"])
}

func TestUnparseableDataRendersNull(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, models.UserTypeCustomer)

	ins := &insurance.Insurance{InsuranceName: "Travel", InsuranceKey: "travel"}
	require.NoError(t, f.store.Insurances().Create(ctx, ins))
	require.NoError(t, f.store.InsuranceSubmissions().Create(ctx, &submission.InsuranceSubmission{
		SubmitterID: u.ID, InsuranceID: ins.ID, Data: "{'broken': 'it's'}",
	}))

	view, err := f.profiles.BuildDetail(ctx, u)
	require.NoError(t, err)
	policies := view["insurances"].([]map[string]any)
	require.Len(t, policies, 1)
	assert.Contains(t, policies[0], "data")
	assert.Nil(t, policies[0]["data"])
}

func TestParseSubmissionData(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    any
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "canonical", raw: `{"a": "it's"}`, want: map[string]any{"a": "it's"}},
		{name: "legacy", raw: `{'a': 'b', 'n': 2}`, want: map[string]any{"a": "b", "n": float64(2)}},
		{name: "garbage", raw: "{'a': }", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSubmissionData(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparseableData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSubmissionData(t *testing.T) {
	out, changed, err := NormalizeSubmissionData(`{'a': 'b'}`)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.JSONEq(t, `{"a":"b"}`, out)

	out, changed, err = NormalizeSubmissionData(`{"a":"b"}`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, `{"a":"b"}`, out)

	_, _, err = NormalizeSubmissionData("{'x")
	assert.Error(t, err)
}
