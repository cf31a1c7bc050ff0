package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/submission"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
)

// ErrUnparseableData is returned for submission data that is neither JSON nor
// the legacy single-quoted form.
var ErrUnparseableData = errors.New("submission data is not parseable")

// ProfileService assembles the user views returned by the API. Optional blocks
// are only present when backing rows exist.
type ProfileService struct {
	store   store.Store
	storage ObjectStorage
}

func NewProfileService(s store.Store, storage ObjectStorage) *ProfileService {
	return &ProfileService{store: s, storage: storage}
}

func baseView(u *models.User) map[string]any {
	return map[string]any{
		"id":         u.ID.String(),
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"phone":      u.Phone,
		"utype":      int(u.Utype),
		"verified":   u.Verified,
	}
}

// BuildDetail is the full view of a user, shown to the user and to staff.
func (s *ProfileService) BuildDetail(ctx context.Context, u *models.User) (map[string]any, error) {
	view := baseView(u)
	view["address1"] = u.Address1
	view["address2"] = u.Address2
	view["zipcode"] = u.Zipcode

	if err := s.addAdvisor(ctx, view, u); err != nil {
		return nil, err
	}

	reports, err := s.store.DamageReports().ListBySubmitter(ctx, u.ID, store.DamageReportFilter{ExcludeDenied: true})
	if err != nil {
		return nil, err
	}
	if len(reports) > 0 {
		items := make([]map[string]any, 0, len(reports))
		for _, r := range reports {
			items = append(items, map[string]any{
				"id": r.ID,
				"policy": map[string]any{
					"id":        r.Policy.ID,
					"name":      r.Policy.Insurance.String(),
					"policy_id": r.Policy.PolicyID,
				},
				"status": string(r.Status),
			})
		}
		view["damagereports"] = items
	}

	latest, err := s.store.IDSubmissions().GetLatest(ctx, u.ID)
	switch {
	case err == nil:
		view["id_document"] = map[string]any{
			"url":      s.objectURL(ctx, latest.Document),
			"verified": latest.Verified,
			"denied":   latest.Denied,
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	policies, err := s.store.InsuranceSubmissions().ListBySubmitter(ctx, u.ID, store.InsuranceSubmissionFilter{ExcludeDenied: true})
	if err != nil {
		return nil, err
	}
	if len(policies) > 0 {
		items := make([]map[string]any, 0, len(policies))
		for _, p := range policies {
			items = append(items, map[string]any{
				"id":        p.ID,
				"insurance": p.Insurance.String(),
				"policy_id": p.PolicyID,
				"submitter": p.Submitter.Email,
				"status":    map[string]any{"active": p.Active},
				"data":      s.submissionData(ctx, &p),
			})
		}
		view["insurances"] = items
	}

	return view, nil
}

// BuildBasic is the compact list entry staff see for every user.
func (s *ProfileService) BuildBasic(ctx context.Context, u *models.User) (map[string]any, error) {
	view := baseView(u)
	if u.IsStaff() && u.Picture != "" {
		view["picture"] = s.objectURL(ctx, u.Picture)
	}

	if err := s.addAdvisor(ctx, view, u); err != nil {
		return nil, err
	}

	reports, err := s.store.DamageReports().ListBySubmitter(ctx, u.ID, store.DamageReportFilter{Status: submission.DamageStatusWaiting})
	if err != nil {
		return nil, err
	}
	if len(reports) > 0 {
		items := make([]map[string]any, 0, len(reports))
		for _, r := range reports {
			items = append(items, map[string]any{"id": r.ID})
		}
		view["damagereports"] = items
	}

	latest, err := s.store.IDSubmissions().GetLatest(ctx, u.ID)
	switch {
	case err == nil:
		view["id_document"] = map[string]any{"id": latest.ID, "verified": latest.Verified}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	inactive := false
	policies, err := s.store.InsuranceSubmissions().ListBySubmitter(ctx, u.ID, store.InsuranceSubmissionFilter{
		ExcludeDenied: true,
		Active:        &inactive,
	})
	if err != nil {
		return nil, err
	}
	if len(policies) > 0 {
		items := make([]map[string]any, 0, len(policies))
		for _, p := range policies {
			items = append(items, map[string]any{"id": p.ID})
		}
		view["insurances"] = items
	}

	return view, nil
}

// BuildBasicList maps BuildBasic over users.
func (s *ProfileService) BuildBasicList(ctx context.Context, users []models.User) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(users))
	for i := range users {
		view, err := s.BuildBasic(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *ProfileService) addAdvisor(ctx context.Context, view map[string]any, u *models.User) error {
	if u.AdvisorID == nil {
		return nil
	}

	advisor := u.Advisor
	if advisor == nil {
		loaded, err := s.store.Users().GetByID(ctx, *u.AdvisorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		advisor = loaded
	}

	block := map[string]any{
		"first_name": advisor.FirstName,
		"last_name":  advisor.LastName,
		"email":      advisor.Email,
		"phone":      advisor.Phone,
	}
	// Advisors assigned before pictures were enforced may have none.
	if advisor.Picture != "" {
		block["picture"] = s.objectURL(ctx, advisor.Picture)
	}
	view["advisor"] = block
	return nil
}

func (s *ProfileService) objectURL(ctx context.Context, key string) string {
	if s.storage == nil || key == "" {
		return key
	}
	url, err := s.storage.URL(ctx, key)
	if err != nil {
		logger.WithContext(ctx).Warn("presigning object failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return url
}

func (s *ProfileService) submissionData(ctx context.Context, p *submission.InsuranceSubmission) any {
	data, err := ParseSubmissionData(p.Data)
	if err != nil {
		logger.WithContext(ctx).Warn("insurance submission data unreadable",
			zap.Uint("submission_id", p.ID),
			zap.Error(err),
		)
		return nil
	}
	return data
}

// ParseSubmissionData decodes stored submission data. Canonical JSON wins;
// the legacy form is read by turning single quotes into double quotes.
func ParseSubmissionData(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "'", `"`)), &out); err == nil {
		return out, nil
	}
	return nil, ErrUnparseableData
}

// NormalizeSubmissionData rewrites stored data as canonical JSON. changed is
// false when raw already is canonical JSON or empty.
func NormalizeSubmissionData(raw string) (normalized string, changed bool, err error) {
	if strings.TrimSpace(raw) == "" || json.Valid([]byte(raw)) {
		return raw, false, nil
	}
	data, err := ParseSubmissionData(raw)
	if err != nil {
		return raw, false, err
	}
	out, err := json.Marshal(data)
	if err != nil {
		return raw, false, err
	}
	return string(out), true, nil
}
