package test

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

// Operation names accepted by MemoryStore.Fail.
const (
	OpApplicationCreate       = "applications.Create"
	OpApplicationGet          = "applications.GetByID"
	OpApplicationList         = "applications.ListByStatuses"
	OpApplicationUpdateStatus = "applications.UpdateStatus"
	OpApplicationArchive      = "applications.Archive"
	OpReviewSubmit            = "reviews.Submit"
	OpReviewActive            = "reviews.Active"
	OpReviewSetStatus         = "reviews.SetStatus"
	OpLedgerInsert            = "ledger.Insert"
	OpLedgerGet               = "ledger.GetByID"
	OpLedgerList              = "ledger.List"
	OpLedgerResolve           = "ledger.ResolvePending"
	OpLedgerTotals            = "ledger.Totals"
	OpBalanceGet              = "balances.Get"
	OpBalanceUpsert           = "balances.Upsert"
	OpBalanceMarkStale        = "balances.MarkStale"
	OpWithdrawalCreate        = "withdrawals.Create"
	OpWithdrawalGet           = "withdrawals.GetByID"
	OpWithdrawalList          = "withdrawals.ListByStatuses"
	OpWithdrawalUpdateStatus  = "withdrawals.UpdateStatus"
)

// MemoryStore keeps every aggregate in memory and implements repository.Factory.
// Failures queued with Fail are returned by the next matching call before it
// touches any state.
type MemoryStore struct {
	mu sync.Mutex

	faults map[string][]error
	calls  map[string]int

	applications map[int64]*model.Application
	reviews      map[int64][]*model.ReviewSubmission
	entries      []*model.LedgerEntry
	balances     map[int64]*model.Balance
	withdrawals  map[int64]*model.WithdrawalRequest

	nextApplication int64
	nextReview      int64
	nextEntry       int64
	nextWithdrawal  int64
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		faults:       make(map[string][]error),
		calls:        make(map[string]int),
		applications: make(map[int64]*model.Application),
		reviews:      make(map[int64][]*model.ReviewSubmission),
		balances:     make(map[int64]*model.Balance),
		withdrawals:  make(map[int64]*model.WithdrawalRequest),
	}
}

// Fail queues err for the next call of op. Queue several errors to fail
// several consecutive calls; a nil entry lets one call through.
func (s *MemoryStore) Fail(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], errs...)
}

// Calls reports how many times op was invoked.
func (s *MemoryStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// hit must be called with mu held.
func (s *MemoryStore) hit(op string) error {
	s.calls[op]++
	queue := s.faults[op]
	if len(queue) == 0 {
		return nil
	}
	s.faults[op] = queue[1:]
	return queue[0]
}

// Applications returns the application repository view.
func (s *MemoryStore) Applications() repository.ApplicationRepository {
	return (*memoryApplications)(s)
}

// Reviews returns the review repository view.
func (s *MemoryStore) Reviews() repository.ReviewRepository { return (*memoryReviews)(s) }

// Ledger returns the ledger repository view.
func (s *MemoryStore) Ledger() repository.LedgerRepository { return (*memoryLedger)(s) }

// Balances returns the balance cache repository view.
func (s *MemoryStore) Balances() repository.BalanceRepository { return (*memoryBalances)(s) }

// Withdrawals returns the withdrawal repository view.
func (s *MemoryStore) Withdrawals() repository.WithdrawalRepository {
	return (*memoryWithdrawals)(s)
}

// PutApplication stores a copy of app, assigning an id when it has none.
func (s *MemoryStore) PutApplication(app model.Application) *model.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == 0 {
		s.nextApplication++
		app.ID = s.nextApplication
	} else if app.ID > s.nextApplication {
		s.nextApplication = app.ID
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now()
	}
	stored := app
	s.applications[app.ID] = &stored
	return cloneApplication(&stored)
}

// Application returns a copy of the stored application or nil.
func (s *MemoryStore) Application(id int64) *model.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app, ok := s.applications[id]; ok {
		return cloneApplication(app)
	}
	return nil
}

// PutReview stores a review version and makes it the active one when active is set.
func (s *MemoryStore) PutReview(review model.ReviewSubmission) *model.ReviewSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReview++
	review.ID = s.nextReview
	if review.Active {
		for _, r := range s.reviews[review.ApplicationID] {
			r.Active = false
		}
	}
	stored := review
	s.reviews[review.ApplicationID] = append(s.reviews[review.ApplicationID], &stored)
	copied := stored
	return &copied
}

// ActiveReview returns a copy of the active review of an application or nil.
func (s *MemoryStore) ActiveReview(applicationID int64) *model.ReviewSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.activeReview(applicationID); r != nil {
		copied := *r
		return &copied
	}
	return nil
}

// ReviewVersions returns copies of every review version of an application.
func (s *MemoryStore) ReviewVersions(applicationID int64) []model.ReviewSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ReviewSubmission, 0, len(s.reviews[applicationID]))
	for _, r := range s.reviews[applicationID] {
		out = append(out, *r)
	}
	return out
}

// PutEntry appends a ledger entry bypassing validation and idempotency.
func (s *MemoryStore) PutEntry(entry model.LedgerEntry) *model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntry++
	entry.ID = s.nextEntry
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	stored := entry
	s.entries = append(s.entries, &stored)
	copied := stored
	return &copied
}

// Entries returns copies of all ledger entries in insertion order.
func (s *MemoryStore) Entries() []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// PutBalance overwrites the cached balance of a user.
func (s *MemoryStore) PutBalance(balance model.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := balance
	s.balances[balance.UserID] = &stored
}

// CachedBalance returns a copy of the cached balance or nil.
func (s *MemoryStore) CachedBalance(userID int64) *model.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[userID]; ok {
		copied := *b
		return &copied
	}
	return nil
}

// PutWithdrawal stores a copy of req, assigning an id when it has none.
func (s *MemoryStore) PutWithdrawal(req model.WithdrawalRequest) *model.WithdrawalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == 0 {
		s.nextWithdrawal++
		req.ID = s.nextWithdrawal
	} else if req.ID > s.nextWithdrawal {
		s.nextWithdrawal = req.ID
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	stored := req
	s.withdrawals[req.ID] = &stored
	copied := stored
	return &copied
}

// Withdrawal returns a copy of the stored request or nil.
func (s *MemoryStore) Withdrawal(id int64) *model.WithdrawalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.withdrawals[id]; ok {
		copied := *w
		return &copied
	}
	return nil
}

func (s *MemoryStore) activeReview(applicationID int64) *model.ReviewSubmission {
	for _, r := range s.reviews[applicationID] {
		if r.Active {
			return r
		}
	}
	return nil
}

func cloneApplication(app *model.Application) *model.Application {
	copied := *app
	if app.RewardPoints != nil {
		v := *app.RewardPoints
		copied.RewardPoints = &v
	}
	return &copied
}

type memoryApplications MemoryStore

func (r *memoryApplications) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryApplications) Create(ctx context.Context, userID, campaignID int64) (*model.Application, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpApplicationCreate); err != nil {
		return nil, err
	}
	for _, app := range s.applications {
		if app.UserID == userID && app.CampaignID == campaignID {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	s.nextApplication++
	now := time.Now()
	app := &model.Application{
		ID:         s.nextApplication,
		UserID:     userID,
		CampaignID: campaignID,
		Status:     model.ApplicationStatusPending,
		AppliedAt:  now,
		UpdatedAt:  now,
	}
	s.applications[app.ID] = app
	return cloneApplication(app), nil
}

func (r *memoryApplications) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpApplicationGet); err != nil {
		return nil, err
	}
	app, ok := s.applications[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return cloneApplication(app), nil
}

func (r *memoryApplications) ListByUser(ctx context.Context, userID int64) ([]model.Application, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Application
	for _, app := range s.applications {
		if app.UserID == userID {
			out = append(out, *cloneApplication(app))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryApplications) ListByStatuses(ctx context.Context, statuses []model.ApplicationStatus, afterID int64, limit int) ([]model.Application, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpApplicationList); err != nil {
		return nil, err
	}
	var out []model.Application
	for _, app := range s.applications {
		if app.ID > afterID && app.ArchivedAt == nil && slices.Contains(statuses, app.Status) {
			out = append(out, *cloneApplication(app))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryApplications) UpdateStatus(ctx context.Context, id int64, from, to model.ApplicationStatus, patch model.ApplicationPatch) (*model.Application, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpApplicationUpdateStatus); err != nil {
		return nil, err
	}
	app, ok := s.applications[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if app.Status != from {
		return nil, &domainErrors.TransitionError{From: string(app.Status), To: string(to)}
	}
	patch.Apply(app, to, time.Now())
	return cloneApplication(app), nil
}

func (r *memoryApplications) Archive(ctx context.Context, id int64) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpApplicationArchive); err != nil {
		return err
	}
	app, ok := s.applications[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if app.ArchivedAt == nil {
		now := time.Now()
		app.ArchivedAt = &now
	}
	return nil
}

type memoryReviews MemoryStore

func (r *memoryReviews) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryReviews) Submit(ctx context.Context, applicationID int64, contentRefs []string) (*model.ReviewSubmission, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpReviewSubmit); err != nil {
		return nil, err
	}
	version := 0
	for _, existing := range s.reviews[applicationID] {
		existing.Active = false
		if existing.Version > version {
			version = existing.Version
		}
	}
	s.nextReview++
	review := &model.ReviewSubmission{
		ID:            s.nextReview,
		ApplicationID: applicationID,
		Version:       version + 1,
		ContentRefs:   slices.Clone(contentRefs),
		Status:        model.ReviewStatusSubmitted,
		Active:        true,
		SubmittedAt:   time.Now(),
	}
	s.reviews[applicationID] = append(s.reviews[applicationID], review)
	copied := *review
	return &copied, nil
}

func (r *memoryReviews) Active(ctx context.Context, applicationID int64) (*model.ReviewSubmission, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpReviewActive); err != nil {
		return nil, err
	}
	review := s.activeReview(applicationID)
	if review == nil {
		return nil, domainErrors.ErrNotFound
	}
	copied := *review
	return &copied, nil
}

func (r *memoryReviews) SetStatus(ctx context.Context, id int64, status model.ReviewStatus, reason string) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpReviewSetStatus); err != nil {
		return err
	}
	for _, versions := range s.reviews {
		for _, review := range versions {
			if review.ID != id {
				continue
			}
			review.Status = status
			review.RejectionReason = reason
			if status == model.ReviewStatusSubmitted {
				review.DecidedAt = nil
			} else {
				now := time.Now()
				review.DecidedAt = &now
			}
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

type memoryLedger MemoryStore

func (r *memoryLedger) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryLedger) Insert(ctx context.Context, entry model.LedgerEntry) (*model.LedgerEntry, bool, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerInsert); err != nil {
		return nil, false, err
	}
	for _, existing := range s.entries {
		if existing.IdempotencyKey == entry.IdempotencyKey {
			copied := *existing
			return &copied, false, nil
		}
	}
	s.nextEntry++
	entry.ID = s.nextEntry
	entry.CreatedAt = time.Now()
	stored := entry
	s.entries = append(s.entries, &stored)
	copied := stored
	return &copied, true, nil
}

func (r *memoryLedger) GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerGet); err != nil {
		return nil, err
	}
	for _, e := range s.entries {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *memoryLedger) GetByKey(ctx context.Context, key string) (*model.LedgerEntry, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerGet); err != nil {
		return nil, err
	}
	for _, e := range s.entries {
		if e.IdempotencyKey == key {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *memoryLedger) ListByUser(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerList); err != nil {
		return nil, err
	}
	var out []model.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			out = append(out, *s.entries[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryLedger) ListByApplication(ctx context.Context, applicationID int64) ([]model.LedgerEntry, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerList); err != nil {
		return nil, err
	}
	return s.related(func(e *model.LedgerEntry) bool {
		return e.ApplicationID != nil && *e.ApplicationID == applicationID
	}), nil
}

func (r *memoryLedger) ListByWithdrawal(ctx context.Context, withdrawalID int64) ([]model.LedgerEntry, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerList); err != nil {
		return nil, err
	}
	return s.related(func(e *model.LedgerEntry) bool {
		return e.WithdrawalID != nil && *e.WithdrawalID == withdrawalID
	}), nil
}

// related returns matching entries plus reversals pointing at them, oldest first.
func (s *MemoryStore) related(match func(*model.LedgerEntry) bool) []model.LedgerEntry {
	ids := make(map[int64]struct{})
	var out []model.LedgerEntry
	for _, e := range s.entries {
		if match(e) {
			ids[e.ID] = struct{}{}
			out = append(out, *e)
		}
	}
	for _, e := range s.entries {
		if e.ReversalOf == nil || match(e) {
			continue
		}
		if _, ok := ids[*e.ReversalOf]; ok {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryLedger) ResolvePending(ctx context.Context, id int64, status model.EntryStatus) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerResolve); err != nil {
		return err
	}
	for _, e := range s.entries {
		if e.ID == id && e.Kind == model.EntryKindPending && e.Status == model.EntryStatusPending {
			e.Status = status
		}
	}
	return nil
}

func (r *memoryLedger) Totals(ctx context.Context, userID int64) (model.Balance, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerTotals); err != nil {
		return model.Balance{}, err
	}
	entries := make([]model.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, *e)
	}
	return model.SumEntries(userID, entries), nil
}

func (r *memoryLedger) UserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpLedgerList); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, e := range s.entries {
		if _, ok := seen[e.UserID]; ok || e.UserID <= afterID {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type memoryBalances MemoryStore

func (r *memoryBalances) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryBalances) Get(ctx context.Context, userID int64) (*model.Balance, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpBalanceGet); err != nil {
		return nil, err
	}
	b, ok := s.balances[userID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memoryBalances) Upsert(ctx context.Context, balance model.Balance) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpBalanceUpsert); err != nil {
		return err
	}
	balance.Stale = false
	balance.UpdatedAt = time.Now()
	s.balances[balance.UserID] = &balance
	return nil
}

func (r *memoryBalances) MarkStale(ctx context.Context, userID int64) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpBalanceMarkStale); err != nil {
		return err
	}
	b, ok := s.balances[userID]
	if !ok {
		b = &model.Balance{UserID: userID}
		s.balances[userID] = b
	}
	b.Stale = true
	return nil
}

type memoryWithdrawals MemoryStore

func (r *memoryWithdrawals) store() *MemoryStore { return (*MemoryStore)(r) }

func (r *memoryWithdrawals) Create(ctx context.Context, req model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpWithdrawalCreate); err != nil {
		return nil, err
	}
	s.nextWithdrawal++
	req.ID = s.nextWithdrawal
	req.Status = model.WithdrawalStatusPending
	req.RequestedAt = time.Now()
	stored := req
	s.withdrawals[req.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *memoryWithdrawals) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpWithdrawalGet); err != nil {
		return nil, err
	}
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (r *memoryWithdrawals) ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WithdrawalRequest
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryWithdrawals) ListByStatuses(ctx context.Context, statuses []model.WithdrawalStatus, afterID int64, limit int) ([]model.WithdrawalRequest, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpWithdrawalList); err != nil {
		return nil, err
	}
	var out []model.WithdrawalRequest
	for _, w := range s.withdrawals {
		if w.ID > afterID && slices.Contains(statuses, w.Status) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryWithdrawals) UpdateStatus(ctx context.Context, id int64, from, to model.WithdrawalStatus, note string) (*model.WithdrawalRequest, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpWithdrawalUpdateStatus); err != nil {
		return nil, err
	}
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if w.Status != from {
		return nil, fmt.Errorf("withdrawal %d is %s: %w", id, w.Status, domainErrors.ErrAlreadyProcessed)
	}
	now := time.Now()
	w.Status = to
	if note != "" {
		w.AdminNote = note
	}
	switch to {
	case model.WithdrawalStatusApproved, model.WithdrawalStatusRejected:
		w.ProcessedAt = &now
	case model.WithdrawalStatusCompleted:
		w.CompletedAt = &now
	case model.WithdrawalStatusPending:
		w.ProcessedAt = nil
	}
	copied := *w
	return &copied, nil
}

var _ repository.Factory = (*MemoryStore)(nil)
