package services

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/clients"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/submission"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
	"portal-backend/shared/utils/document"
	"portal-backend/shared/utils/payload"
	"portal-backend/shared/utils/permission"
)

const (
	idDocumentPrefix      = "id-documents"
	EventIDDocumentSubmit = "id_document.submitted"
)

// Upload is a received file.
type Upload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// IDDocumentService handles identification document submissions and their
// review by staff.
type IDDocumentService struct {
	store    store.Store
	storage  ObjectStorage
	accounts *AccountService
	sessions *SessionService
	profiles *ProfileService
	notifier Notifier
	rules    document.UploadRules
	dispatch Dispatcher
	now      Clock
}

func NewIDDocumentService(s store.Store, storage ObjectStorage, accounts *AccountService, sessions *SessionService,
	profiles *ProfileService, notifier Notifier, rules document.UploadRules, dispatch Dispatcher, clock Clock) *IDDocumentService {
	if clock == nil {
		clock = SystemClock
	}
	if dispatch == nil {
		dispatch = AsyncDispatcher
	}
	return &IDDocumentService{
		store:    s,
		storage:  storage,
		accounts: accounts,
		sessions: sessions,
		profiles: profiles,
		notifier: notifier,
		rules:    rules,
		dispatch: dispatch,
		now:      clock,
	}
}

func (s *IDDocumentService) view(ctx context.Context, sub *submission.IDSubmission) map[string]any {
	return map[string]any{
		"id":           sub.ID,
		"submitter":    sub.Submitter.Email,
		"submitter_id": sub.SubmitterID.String(),
		"url":          s.profiles.objectURL(ctx, sub.Document),
		"latest":       sub.Latest,
		"verified":     sub.Verified,
		"denied":       sub.Denied,
		"created_at":   sub.CreatedAt,
	}
}

// List returns every pending submission to staff, and the own latest
// submission to everybody else.
func (s *IDDocumentService) List(ctx context.Context, viewer permission.Viewer) (any, error) {
	if err := permission.Authorize(viewer, permission.ActionListIDDocuments, uuid.Nil); err != nil {
		return nil, err
	}

	if viewer.IsStaff() {
		pending, err := s.store.IDSubmissions().ListPending(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(pending))
		for i := range pending {
			out = append(out, s.view(ctx, &pending[i]))
		}
		return out, nil
	}

	latest, err := s.store.IDSubmissions().GetLatest(ctx, viewer.User.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(msgNotFound)
		}
		return nil, err
	}
	latest.Submitter = *viewer.User
	return s.view(ctx, latest), nil
}

// ListByUser returns all submissions of one user to staff.
func (s *IDDocumentService) ListByUser(ctx context.Context, viewer permission.Viewer, userID uuid.UUID) ([]map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionListUserIDDocuments, userID); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(msgNotFound)
		}
		return nil, err
	}

	subs, err := s.store.IDSubmissions().ListBySubmitter(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(subs))
	for i := range subs {
		subs[i].Submitter = *user
		out = append(out, s.view(ctx, &subs[i]))
	}
	return out, nil
}

// Submit stores an uploaded document as the viewer's latest submission.
func (s *IDDocumentService) Submit(ctx context.Context, viewer permission.Viewer, upload Upload) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionSubmitIDDocument, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.rules.ValidateUploadedFile(upload.FileName, upload.Size); err != nil {
		return nil, apperrors.FieldError("document", err.Error())
	}
	if s.storage == nil {
		return nil, apperrors.Unavailable("Document storage is not configured.")
	}

	log := logger.WithContext(ctx)
	owner := viewer.User
	key := document.GenerateObjectKey(idDocumentPrefix, owner.ID, upload.FileName)
	if err := s.storage.Upload(ctx, key, upload.Content, upload.Size, document.ContentType(upload.FileName)); err != nil {
		log.Error("id document upload failed", zap.Error(err))
		return nil, apperrors.Unavailable("Document storage is unavailable.").WithError(err)
	}

	now := s.now()
	sub := &submission.IDSubmission{
		SubmitterID: owner.ID,
		Document:    key,
		Latest:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.IDSubmissions().DemoteLatest(ctx, owner.ID); err != nil {
			return err
		}
		return tx.IDSubmissions().Create(ctx, sub)
	})
	if err != nil {
		if rmErr := s.storage.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			log.Warn("orphaned id document left in storage", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}

	log.Info("id document submitted", zap.Uint("submission_id", sub.ID), zap.String("user_id", owner.ID.String()))

	bg := context.WithoutCancel(ctx)
	s.dispatch(func() {
		err := s.notifier.Push(bg, clients.ChannelStaff, EventIDDocumentSubmit, map[string]any{
			"submission_id": sub.ID,
			"user_id":       owner.ID.String(),
			"email":         owner.Email,
		})
		if err != nil {
			log.Warn("staff notification for id document failed", zap.Error(err))
		}
	})

	return map[string]any{"submission_id": strconv.FormatUint(uint64(sub.ID), 10)}, nil
}

// reviewablePayload keeps the submitter fields staff may correct while
// reviewing a document.
func reviewablePayload(p *payload.UserPayload) *payload.UserPayload {
	return &payload.UserPayload{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Password:  p.Password,
	}
}

// Verify records the staff decision on a submission and applies corrections
// to the submitter. Only a transition to verified mails the submitter.
func (s *IDDocumentService) Verify(ctx context.Context, viewer permission.Viewer, id uint, p *payload.VerifyDocumentPayload) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionVerifyIDDocument, uuid.Nil); err != nil {
		return nil, err
	}

	sub, err := s.store.IDSubmissions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(msgNotFound)
		}
		return nil, err
	}

	verified, present, isBool := p.VerifiedFlag()
	if !present {
		return nil, apperrors.FieldError("verified", apperrors.MsgRequired)
	}
	if !isBool {
		return nil, apperrors.FieldError("verified", apperrors.MsgNotBool)
	}

	changes, err := s.accounts.userFieldChanges(ctx, &sub.Submitter, reviewablePayload(&p.UserPayload))
	if err != nil {
		return nil, err
	}

	var (
		wasVerified bool
		submitter   models.User
		dropped     []string
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		current, err := tx.IDSubmissions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		wasVerified = current.Verified
		current.Verified = verified
		current.UpdatedAt = s.now()
		if err := tx.IDSubmissions().Update(ctx, current); err != nil {
			return err
		}

		user, err := tx.Users().LockByID(ctx, current.SubmitterID)
		if err != nil {
			return err
		}
		changes.apply(user)
		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperrors.FieldError("email", msgEmailTaken)
			}
			return err
		}
		submitter = *user

		if changes.passwordHash != "" {
			dropped, err = s.sessions.Remove(ctx, tx, user.ID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sessions.Forget(ctx, dropped)

	log := logger.WithContext(ctx)
	log.Info("id document reviewed",
		zap.Uint("submission_id", id),
		zap.Bool("verified", verified),
		zap.String("by", viewer.User.ID.String()),
	)

	if !wasVerified && verified {
		bg := context.WithoutCancel(ctx)
		s.dispatch(func() {
			err := s.notifier.Send(bg, clients.TemplateVerifyID, submitter.Email, map[string]string{
				"first_name": submitter.FirstName,
				"last_name":  submitter.LastName,
			})
			if err != nil {
				log.Warn("id verification mail failed", zap.String("email", logger.MaskEmail(submitter.Email)), zap.Error(err))
			}
		})
	}

	return map[string]any{
		"success":    true,
		"verified":   verified,
		"submission": strconv.FormatUint(uint64(id), 10),
	}, nil
}
