package store

import (
	"context"
	"sort"
	"sync"

	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/models/submission"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Transactions are serialized
// against each other and rolled back by restoring a snapshot.
type MemoryStore struct {
	state *memoryState
	inTx  bool
}

type memoryState struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data memoryData
}

type memoryData struct {
	users      map[uuid.UUID]models.User
	tokens     map[auth.TokenPurpose]map[uuid.UUID]auth.Token
	sessions   map[uuid.UUID]auth.UserSession
	attempts   []auth.AuthAttempt
	insurances map[uint]insurance.Insurance
	idSubs     map[uint]submission.IDSubmission
	reports    map[uint]submission.DamageReport
	insSubs    map[uint]submission.InsuranceSubmission
	seq        uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{data: memoryData{
		users: map[uuid.UUID]models.User{},
		tokens: map[auth.TokenPurpose]map[uuid.UUID]auth.Token{
			auth.PurposeEmailVerification: {},
			auth.PurposePasswordReset:     {},
		},
		sessions:   map[uuid.UUID]auth.UserSession{},
		insurances: map[uint]insurance.Insurance{},
		idSubs:     map[uint]submission.IDSubmission{},
		reports:    map[uint]submission.DamageReport{},
		insSubs:    map[uint]submission.InsuranceSubmission{},
	}}}
}

func (d memoryData) clone() memoryData {
	out := memoryData{
		users:      make(map[uuid.UUID]models.User, len(d.users)),
		tokens:     make(map[auth.TokenPurpose]map[uuid.UUID]auth.Token, len(d.tokens)),
		sessions:   make(map[uuid.UUID]auth.UserSession, len(d.sessions)),
		attempts:   append([]auth.AuthAttempt(nil), d.attempts...),
		insurances: make(map[uint]insurance.Insurance, len(d.insurances)),
		idSubs:     make(map[uint]submission.IDSubmission, len(d.idSubs)),
		reports:    make(map[uint]submission.DamageReport, len(d.reports)),
		insSubs:    make(map[uint]submission.InsuranceSubmission, len(d.insSubs)),
		seq:        d.seq,
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for purpose, byID := range d.tokens {
		cp := make(map[uuid.UUID]auth.Token, len(byID))
		for k, v := range byID {
			cp[k] = v
		}
		out.tokens[purpose] = cp
	}
	for k, v := range d.sessions {
		out.sessions[k] = v
	}
	for k, v := range d.insurances {
		out.insurances[k] = v
	}
	for k, v := range d.idSubs {
		out.idSubs[k] = v
	}
	for k, v := range d.reports {
		out.reports[k] = v
	}
	for k, v := range d.insSubs {
		out.insSubs[k] = v
	}
	return out
}

func (s *MemoryStore) Users() UserRepository { return &memoryUserRepository{s.state} }

func (s *MemoryStore) Tokens(purpose auth.TokenPurpose) TokenRepository {
	return &memoryTokenRepository{state: s.state, purpose: purpose}
}

func (s *MemoryStore) Sessions() SessionRepository { return &memorySessionRepository{s.state} }

func (s *MemoryStore) Attempts() AttemptRepository { return &memoryAttemptRepository{s.state} }

func (s *MemoryStore) Insurances() InsuranceRepository { return &memoryInsuranceRepository{s.state} }

func (s *MemoryStore) IDSubmissions() IDSubmissionRepository {
	return &memoryIDSubmissionRepository{s.state}
}

func (s *MemoryStore) DamageReports() DamageReportRepository {
	return &memoryDamageReportRepository{s.state}
}

func (s *MemoryStore) InsuranceSubmissions() InsuranceSubmissionRepository {
	return &memoryInsuranceSubmissionRepository{s.state}
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.state.txMu.Lock()
	defer s.state.txMu.Unlock()

	s.state.mu.Lock()
	snapshot := s.state.data.clone()
	s.state.mu.Unlock()

	if err := fn(&MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.mu.Lock()
		s.state.data = snapshot
		s.state.mu.Unlock()
		return err
	}
	return nil
}

// AttemptCount is exposed for tests and diagnostics.
func (s *MemoryStore) AttemptCount(kind auth.AttemptKind) int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	n := 0
	for _, a := range s.state.data.attempts {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func (st *memoryState) nextID() uint {
	st.data.seq++
	return st.data.seq
}

func (st *memoryState) userWithAdvisor(u models.User) *models.User {
	u.Advisor = nil
	if u.AdvisorID != nil {
		if adv, ok := st.data.users[*u.AdvisorID]; ok {
			adv.Advisor = nil
			u.Advisor = &adv
		}
	}
	return &u
}

type memoryUserRepository struct {
	st *memoryState
}

func (r *memoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	u, ok := r.st.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.st.userWithAdvisor(u), nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, u := range r.st.data.users {
		if u.Email == email {
			u.Advisor = nil
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Advisor = nil
	return u, nil
}

func (r *memoryUserRepository) ListByType(_ context.Context, utype models.UserType) ([]models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var users []models.User
	for _, u := range r.st.data.users {
		if u.Utype == utype {
			users = append(users, *r.st.userWithAdvisor(u))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, ok := r.st.data.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range r.st.data.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	stored := *user
	stored.Advisor = nil
	r.st.data.users[user.ID] = stored
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.data.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, u := range r.st.data.users {
		if id != user.ID && u.Email == user.Email {
			return ErrDuplicate
		}
	}
	stored := *user
	stored.Advisor = nil
	r.st.data.users[user.ID] = stored
	return nil
}

type memoryTokenRepository struct {
	state   *memoryState
	purpose auth.TokenPurpose
}

func (r *memoryTokenRepository) table() map[uuid.UUID]auth.Token {
	return r.state.data.tokens[r.purpose]
}

func (r *memoryTokenRepository) GetByUser(_ context.Context, userID uuid.UUID) (*auth.Token, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	for _, t := range r.table() {
		if t.UserID == userID {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryTokenRepository) GetByValue(_ context.Context, value string) (*auth.Token, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	for _, t := range r.table() {
		if t.Token == value {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryTokenRepository) Create(_ context.Context, token *auth.Token) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	for _, t := range r.table() {
		if t.UserID == token.UserID || t.Token == token.Token {
			return ErrDuplicate
		}
	}
	r.table()[token.ID] = *token
	return nil
}

func (r *memoryTokenRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.table()[id]; !ok {
		return ErrNotFound
	}
	delete(r.table(), id)
	return nil
}

type memorySessionRepository struct {
	st *memoryState
}

func (r *memorySessionRepository) GetBySessionID(_ context.Context, sessionID string) (*auth.UserSession, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, s := range r.st.data.sessions {
		if s.SessionID == sessionID {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memorySessionRepository) GetByUser(_ context.Context, userID uuid.UUID) (*auth.UserSession, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, s := range r.st.data.sessions {
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memorySessionRepository) Create(_ context.Context, session *auth.UserSession) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	for _, s := range r.st.data.sessions {
		if s.UserID == session.UserID || s.SessionID == session.SessionID {
			return ErrDuplicate
		}
	}
	r.st.data.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepository) DeleteByUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var sessionIDs []string
	for id, s := range r.st.data.sessions {
		if s.UserID == userID {
			sessionIDs = append(sessionIDs, s.SessionID)
			delete(r.st.data.sessions, id)
		}
	}
	return sessionIDs, nil
}

type memoryAttemptRepository struct {
	st *memoryState
}

func (r *memoryAttemptRepository) Record(_ context.Context, attempt *auth.AuthAttempt) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	r.st.data.attempts = append(r.st.data.attempts, *attempt)
	return nil
}

type memoryInsuranceRepository struct {
	st *memoryState
}

func (r *memoryInsuranceRepository) Create(_ context.Context, ins *insurance.Insurance) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, existing := range r.st.data.insurances {
		if existing.InsuranceKey == ins.InsuranceKey {
			return ErrDuplicate
		}
	}
	if ins.ID == 0 {
		ins.ID = r.st.nextID()
	}
	r.st.data.insurances[ins.ID] = *ins
	return nil
}

func (r *memoryInsuranceRepository) GetByKey(_ context.Context, key string) (*insurance.Insurance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, ins := range r.st.data.insurances {
		if ins.InsuranceKey == key {
			return &ins, nil
		}
	}
	return nil, ErrNotFound
}

type memoryIDSubmissionRepository struct {
	st *memoryState
}

func (r *memoryIDSubmissionRepository) withSubmitter(sub submission.IDSubmission) submission.IDSubmission {
	if u, ok := r.st.data.users[sub.SubmitterID]; ok {
		u.Advisor = nil
		sub.Submitter = u
	}
	return sub
}

func (r *memoryIDSubmissionRepository) GetByID(_ context.Context, id uint) (*submission.IDSubmission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	sub, ok := r.st.data.idSubs[id]
	if !ok {
		return nil, ErrNotFound
	}
	sub = r.withSubmitter(sub)
	return &sub, nil
}

func (r *memoryIDSubmissionRepository) GetLatest(_ context.Context, submitterID uuid.UUID) (*submission.IDSubmission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var found *submission.IDSubmission
	for _, sub := range r.st.data.idSubs {
		if sub.SubmitterID == submitterID && sub.Latest && (found == nil || sub.ID > found.ID) {
			s := sub
			found = &s
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memoryIDSubmissionRepository) ListBySubmitter(_ context.Context, submitterID uuid.UUID) ([]submission.IDSubmission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var subs []submission.IDSubmission
	for _, sub := range r.st.data.idSubs {
		if sub.SubmitterID == submitterID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (r *memoryIDSubmissionRepository) ListPending(_ context.Context) ([]submission.IDSubmission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var subs []submission.IDSubmission
	for _, sub := range r.st.data.idSubs {
		if sub.Latest && !sub.Verified && !sub.Denied {
			subs = append(subs, r.withSubmitter(sub))
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (r *memoryIDSubmissionRepository) DemoteLatest(_ context.Context, submitterID uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for id, sub := range r.st.data.idSubs {
		if sub.SubmitterID == submitterID && sub.Latest {
			sub.Latest = false
			r.st.data.idSubs[id] = sub
		}
	}
	return nil
}

func (r *memoryIDSubmissionRepository) Create(_ context.Context, sub *submission.IDSubmission) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if sub.ID == 0 {
		sub.ID = r.st.nextID()
	}
	stored := *sub
	stored.Submitter = models.User{}
	r.st.data.idSubs[sub.ID] = stored
	return nil
}

func (r *memoryIDSubmissionRepository) Update(_ context.Context, sub *submission.IDSubmission) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.data.idSubs[sub.ID]; !ok {
		return ErrNotFound
	}
	stored := *sub
	stored.Submitter = models.User{}
	r.st.data.idSubs[sub.ID] = stored
	return nil
}

type memoryDamageReportRepository struct {
	st *memoryState
}

func (r *memoryDamageReportRepository) ListBySubmitter(_ context.Context, submitterID uuid.UUID, filter DamageReportFilter) ([]submission.DamageReport, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var reports []submission.DamageReport
	for _, rep := range r.st.data.reports {
		if rep.SubmitterID != submitterID {
			continue
		}
		if filter.Status != "" && rep.Status != filter.Status {
			continue
		}
		if filter.ExcludeDenied && rep.Denied {
			continue
		}
		if policy, ok := r.st.data.insSubs[rep.PolicyID]; ok {
			policy.Insurance = r.st.data.insurances[policy.InsuranceID]
			rep.Policy = policy
		}
		reports = append(reports, rep)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })
	return reports, nil
}

func (r *memoryDamageReportRepository) Create(_ context.Context, report *submission.DamageReport) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.data.insSubs[report.PolicyID]; !ok {
		return ErrNotFound
	}
	if report.ID == 0 {
		report.ID = r.st.nextID()
	}
	if report.Status == "" {
		report.Status = submission.DamageStatusWaiting
	}
	stored := *report
	stored.Policy = submission.InsuranceSubmission{}
	stored.Submitter = models.User{}
	r.st.data.reports[report.ID] = stored
	return nil
}

type memoryInsuranceSubmissionRepository struct {
	st *memoryState
}

func (r *memoryInsuranceSubmissionRepository) ListBySubmitter(_ context.Context, submitterID uuid.UUID, filter InsuranceSubmissionFilter) ([]submission.InsuranceSubmission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var subs []submission.InsuranceSubmission
	for _, sub := range r.st.data.insSubs {
		if sub.SubmitterID != submitterID {
			continue
		}
		if filter.ExcludeDenied && sub.Denied {
			continue
		}
		if filter.Active != nil && sub.Active != *filter.Active {
			continue
		}
		sub.Insurance = r.st.data.insurances[sub.InsuranceID]
		if u, ok := r.st.data.users[sub.SubmitterID]; ok {
			u.Advisor = nil
			sub.Submitter = u
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (r *memoryInsuranceSubmissionRepository) ListAll(_ context.Context) ([]submission.InsuranceSubmission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	subs := make([]submission.InsuranceSubmission, 0, len(r.st.data.insSubs))
	for _, sub := range r.st.data.insSubs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (r *memoryInsuranceSubmissionRepository) UpdateData(_ context.Context, id uint, data string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	sub, ok := r.st.data.insSubs[id]
	if !ok {
		return ErrNotFound
	}
	sub.Data = data
	r.st.data.insSubs[id] = sub
	return nil
}

func (r *memoryInsuranceSubmissionRepository) Create(_ context.Context, sub *submission.InsuranceSubmission) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.data.insurances[sub.InsuranceID]; !ok {
		return ErrNotFound
	}
	if sub.ID == 0 {
		sub.ID = r.st.nextID()
	}
	stored := *sub
	stored.Insurance = insurance.Insurance{}
	stored.Submitter = models.User{}
	r.st.data.insSubs[sub.ID] = stored
	return nil
}
