package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"internmatch/internal/domain/advertisement"
	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/posting"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/repository"

	"github.com/google/uuid"
)

type memApplication struct {
	ApplicantID      uuid.UUID
	PostingID        uuid.UUID
	RecommendationID uuid.UUID
}

type memState struct {
	applicants map[uuid.UUID]applicant.Applicant
	postings   []posting.Posting
	recs       []recommendation.Record
	apps       []memApplication
}

func (s memState) clone() memState {
	out := memState{
		applicants: make(map[uuid.UUID]applicant.Applicant, len(s.applicants)),
		postings:   append([]posting.Posting(nil), s.postings...),
		recs:       append([]recommendation.Record(nil), s.recs...),
		apps:       append([]memApplication(nil), s.apps...),
	}
	for k, v := range s.applicants {
		out.applicants[k] = v
	}
	return out
}

// memStore implements every repository the usecases need. Transactions work
// on a copy that replaces the state only when fn succeeds, and hold the store
// mutex for their whole duration like a row lock would.
type memStore struct {
	mu    sync.Mutex
	state memState
	ads   []advertisement.Advertisement

	upserts        atomic.Int32
	failUpsertAt   int32
	currentViolate atomic.Bool
	setCurrentErr  error
}

func newMemStore() *memStore {
	return &memStore{state: memState{applicants: map[uuid.UUID]applicant.Applicant{}}}
}

func (s *memStore) putApplicant(a applicant.Applicant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.applicants[a.ID] = a
}

func (s *memStore) putPosting(p posting.Posting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.postings {
		if s.state.postings[i].ID == p.ID {
			s.state.postings[i] = p
			return
		}
	}
	s.state.postings = append(s.state.postings, p)
}

func (s *memStore) applicantByID(id uuid.UUID) applicant.Applicant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.applicants[id]
}

func (s *memStore) records(applicantID uuid.UUID) []recommendation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recommendation.Record
	for _, r := range s.state.recs {
		if r.ApplicantID == applicantID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) applications() []memApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]memApplication(nil), s.state.apps...)
}

func (s *memStore) record(id uuid.UUID) recommendation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.state.recs {
		if r.ID == id {
			return r
		}
	}
	return recommendation.Record{}
}

func (s *memStore) setRecord(id uuid.UUID, fn func(r *recommendation.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.recs {
		if s.state.recs[i].ID == id {
			fn(&s.state.recs[i])
		}
	}
}

func (s *memStore) commit(next memState) {
	seen := map[uuid.UUID]bool{}
	for _, r := range next.recs {
		if !r.IsCurrent {
			continue
		}
		if seen[r.ApplicantID] {
			s.currentViolate.Store(true)
		}
		seen[r.ApplicantID] = true
	}
	s.state = next
}

// ApplicantRepository

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (applicant.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.applicants[id]
	if !ok {
		return applicant.Applicant{}, repository.ErrNotFound
	}
	return a, nil
}

// PostingRepository

func (s *memStore) ListOpen(context.Context) ([]posting.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]posting.Posting, 0)
	for _, p := range s.state.postings {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) OpenModifiedSince(_ context.Context, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.postings {
		if p.IsOpen() && p.UpdatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

// AdvertisementRepository

func (s *memStore) ListActive(context.Context) ([]advertisement.Advertisement, error) {
	return s.ads, nil
}

// RecommendationRepository

func (s *memStore) WithinRankingTx(_ context.Context, applicantID uuid.UUID, fn func(w repository.RankingWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.applicants[applicantID]; !ok {
		return repository.ErrNotFound
	}
	work := s.state.clone()
	if err := fn(&memRanking{s: s, st: &work, applicantID: applicantID}); err != nil {
		return err
	}
	s.commit(work)
	return nil
}

type memRanking struct {
	s           *memStore
	st          *memState
	applicantID uuid.UUID
}

func (w *memRanking) ExistingStatuses(context.Context) (map[uuid.UUID]recommendation.Status, error) {
	out := map[uuid.UUID]recommendation.Status{}
	for _, r := range w.st.recs {
		if r.ApplicantID == w.applicantID {
			out[r.PostingID] = r.Status
		}
	}
	return out, nil
}

func (w *memRanking) DeleteStale(_ context.Context, keep []uuid.UUID) (int64, error) {
	k := map[uuid.UUID]bool{}
	for _, id := range keep {
		k[id] = true
	}
	var n int64
	out := w.st.recs[:0]
	for _, r := range w.st.recs {
		if r.ApplicantID == w.applicantID && !k[r.PostingID] {
			n++
			continue
		}
		out = append(out, r)
	}
	w.st.recs = out
	return n, nil
}

func (w *memRanking) Upsert(_ context.Context, u repository.RecommendationUpsert) error {
	n := w.s.upserts.Add(1)
	if w.s.failUpsertAt > 0 && n >= w.s.failUpsertAt {
		return fmt.Errorf("upsert %d: connection reset", n)
	}
	for i := range w.st.recs {
		r := &w.st.recs[i]
		if r.ApplicantID == w.applicantID && r.PostingID == u.PostingID {
			if r.Status != u.Status {
				at := u.At
				r.StatusChangedAt = &at
			}
			r.SimilarityScore = u.Score
			r.Status = u.Status
			return nil
		}
	}
	at := u.At
	w.st.recs = append(w.st.recs, recommendation.Record{
		ID:              uuid.New(),
		ApplicantID:     w.applicantID,
		PostingID:       u.PostingID,
		SimilarityScore: u.Score,
		Status:          u.Status,
		StatusChangedAt: &at,
		CreatedAt:       u.At,
	})
	return nil
}

func (w *memRanking) TouchLastMatched(_ context.Context, at time.Time) error {
	a := w.st.applicants[w.applicantID]
	a.LastMatchedAt = &at
	w.st.applicants[w.applicantID] = a
	return nil
}

// QueueRepository

func (s *memStore) WithinApplicantTx(_ context.Context, applicantID uuid.UUID, fn func(tx repository.QueueTx, a applicant.Applicant) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.applicants[applicantID]
	if !ok {
		return repository.ErrNotFound
	}
	work := s.state.clone()
	if err := fn(&memQueue{st: &work, applicantID: applicantID, setCurrentErr: s.setCurrentErr}, a); err != nil {
		return err
	}
	s.commit(work)
	return nil
}

type memQueue struct {
	st            *memState
	applicantID   uuid.UUID
	setCurrentErr error
}

func (q *memQueue) update(fn func(a *applicant.Applicant)) {
	a := q.st.applicants[q.applicantID]
	fn(&a)
	q.st.applicants[q.applicantID] = a
}

func (q *memQueue) ResetTapCount(_ context.Context, day time.Time) error {
	q.update(func(a *applicant.Applicant) {
		a.DailyTapCount = 0
		a.TapCountResetDate = &day
	})
	return nil
}

func (q *memQueue) IncrementTapCount(context.Context) (int, error) {
	var n int
	q.update(func(a *applicant.Applicant) {
		a.DailyTapCount++
		n = a.DailyTapCount
	})
	return n, nil
}

func (q *memQueue) SaveFilterState(_ context.Context, f recommendation.FilterState) error {
	q.update(func(a *applicant.Applicant) { a.LastFilterState = &f })
	return nil
}

func (q *memQueue) ReactivateSkipped(_ context.Context, cutoff, now time.Time) (int64, error) {
	var n int64
	for i := range q.st.recs {
		r := &q.st.recs[i]
		if r.ApplicantID != q.applicantID || r.Status != recommendation.StatusSkipped {
			continue
		}
		if r.StatusChangedAt == nil || r.StatusChangedAt.Before(cutoff) {
			at := now
			r.Status = recommendation.StatusPending
			r.StatusChangedAt = &at
			n++
		}
	}
	return n, nil
}

func (q *memQueue) item(r recommendation.Record) repository.QueueItem {
	it := repository.QueueItem{Record: r}
	for _, p := range q.st.postings {
		if p.ID == r.PostingID {
			it.Posting = repository.PostingSummary{
				ID:                 p.ID,
				Title:              p.Title,
				CompanyName:        p.CompanyName,
				Modality:           p.Modality,
				Status:             p.Status,
				IsPaid:             p.IsPaid,
				IsOnlyForPracticum: p.IsOnlyForPracticum,
			}
		}
	}
	return it
}

func (q *memQueue) CurrentPick(context.Context) (*repository.QueueItem, error) {
	for _, r := range q.st.recs {
		if r.ApplicantID == q.applicantID && r.IsCurrent {
			it := q.item(r)
			return &it, nil
		}
	}
	return nil, nil
}

func (q *memQueue) ClearCurrent(context.Context) error {
	for i := range q.st.recs {
		if q.st.recs[i].ApplicantID == q.applicantID {
			q.st.recs[i].IsCurrent = false
		}
	}
	return nil
}

func (q *memQueue) SetCurrent(ctx context.Context, id uuid.UUID) error {
	if q.setCurrentErr != nil {
		return q.setCurrentErr
	}
	_ = q.ClearCurrent(ctx)
	for i := range q.st.recs {
		if q.st.recs[i].ID == id && q.st.recs[i].ApplicantID == q.applicantID {
			q.st.recs[i].IsCurrent = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (q *memQueue) ListCandidates(_ context.Context, f recommendation.FilterState) ([]repository.QueueItem, error) {
	out := make([]repository.QueueItem, 0)
	for _, r := range q.st.recs {
		if r.ApplicantID != q.applicantID || r.Status != recommendation.StatusPending {
			continue
		}
		it := q.item(r)
		p := it.Posting
		if p.Status != posting.StatusOpen {
			continue
		}
		if f.IsPaid != nil && p.IsPaid != *f.IsPaid {
			continue
		}
		if f.IsOnlyForPracticum != nil && p.IsOnlyForPracticum != *f.IsOnlyForPracticum {
			continue
		}
		if f.Modality != nil && p.Modality != *f.Modality {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record.SimilarityScore > out[j].Record.SimilarityScore
	})
	return out, nil
}

func (q *memQueue) GetForUpdate(_ context.Context, id uuid.UUID) (repository.QueueItem, error) {
	for _, r := range q.st.recs {
		if r.ID == id && r.ApplicantID == q.applicantID {
			return q.item(r), nil
		}
	}
	return repository.QueueItem{}, repository.ErrNotFound
}

func (q *memQueue) UpdateStatus(_ context.Context, id uuid.UUID, st recommendation.Status, at time.Time) error {
	for i := range q.st.recs {
		r := &q.st.recs[i]
		if r.ID == id && r.ApplicantID == q.applicantID {
			r.Status = st
			r.StatusChangedAt = &at
			r.IsCurrent = false
			return nil
		}
	}
	return repository.ErrNotFound
}

func (q *memQueue) CreateApplication(_ context.Context, recID, postingID uuid.UUID, _ time.Time) error {
	for _, a := range q.st.apps {
		if a.ApplicantID == q.applicantID && a.PostingID == postingID {
			return nil
		}
	}
	q.st.apps = append(q.st.apps, memApplication{ApplicantID: q.applicantID, PostingID: postingID, RecommendationID: recID})
	return nil
}

// constantEncoder maps every non-blank text to the same unit vector, so any
// two non-empty profiles are perfectly similar.
type constantEncoder struct{}

func (constantEncoder) Encode(_ context.Context, text string) matching.Vector {
	if text == "" {
		return matching.Zero()
	}
	v := matching.Zero()
	v[0] = 1
	return v
}

func (e constantEncoder) EncodeBatch(ctx context.Context, texts []string) matching.Vector {
	for _, t := range texts {
		if t != "" {
			return e.Encode(ctx, t)
		}
	}
	return matching.Zero()
}

// testClock is a settable clock shared by usecases under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
