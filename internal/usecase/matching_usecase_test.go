package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"internmatch/internal/domain/applicant"
	"internmatch/internal/domain/matching"
	"internmatch/internal/domain/posting"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/embedding"
	"internmatch/internal/infrastructure/embedder"
	"internmatch/internal/infrastructure/lock"
	"internmatch/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var manilaTZ = time.FixedZone("PHT", 8*60*60)

var postingSkillSets = [][]string{
	{"Go", "SQL", "Docker"},
	{"Python", "Pandas"},
	{"Go", "Kubernetes"},
	{"Figma", "Illustrator"},
	{"SQL", "Excel"},
	{"Java", "Spring"},
	{"Go", "gRPC", "SQL"},
	{"Accounting"},
	{"React", "TypeScript"},
	{"Rust", "Go"},
	{"Marketing", "SEO"},
	{"Linux", "Bash"},
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
}

func (n *recordingNotifier) RecommendationsUpdated(id uuid.UUID, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = map[uuid.UUID]int{}
	}
	n.calls[id] = count
}

type fixture struct {
	store       *memStore
	clock       *testClock
	locker      *lock.LocalLocker
	notifier    *recordingNotifier
	matching    *Matching
	applicantID uuid.UUID
	postingIDs  []uuid.UUID
}

func newFixture(t *testing.T, postings int) *fixture {
	t.Helper()
	enc, err := embedding.NewService(embedder.NewHashing(matching.Dimensions), nil, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("embedding service: %v", err)
	}

	f := &fixture{
		store:    newMemStore(),
		clock:    &testClock{now: time.Date(2026, 3, 10, 10, 0, 0, 0, manilaTZ)},
		locker:   lock.NewLocalLocker(),
		notifier: &recordingNotifier{},
	}
	created := f.clock.Now().Add(-time.Hour)

	a := applicant.Applicant{
		ID:           uuid.New(),
		HardSkills:   skillsOf("Go", "SQL"),
		SoftSkills:   skillsOf("Communication"),
		Introduction: "backend developer who enjoys building APIs",
		Location:     &matching.GeoPoint{Lat: 14.5995, Lng: 120.9842},
		Modality:     matching.ModalityHybrid,
		InPracticum:  true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	f.store.putApplicant(a)
	f.applicantID = a.ID

	for i := 0; i < postings; i++ {
		p := posting.Posting{
			ID:                 uuid.New(),
			Title:              fmt.Sprintf("Intern %d", i),
			CompanyName:        "Acme",
			RequiredHardSkills: skillsOf(postingSkillSets[i%len(postingSkillSets)]...),
			RequiredSoftSkills: skillsOf("Teamwork"),
			KeyTasks:           []string{"ship features"},
			Modality:           []matching.Modality{matching.ModalityOnsite, matching.ModalityHybrid, matching.ModalityWorkFromHome}[i%3],
			Location:           &matching.GeoPoint{Lat: 14.55 + float64(i)*0.02, Lng: 121.0},
			Status:             posting.StatusOpen,
			IsPaid:             i%2 == 0,
			CreatedAt:          created,
			UpdatedAt:          created,
		}
		f.store.putPosting(p)
		f.postingIDs = append(f.postingIDs, p.ID)
	}

	ranking := NewRankingUsecase(f.store, f.store, NewProfileAggregator(enc, zerolog.Nop()), 4)
	f.matching = NewMatchingUsecase(f.store, f.store, f.store, ranking, f.locker, time.Minute, f.notifier, zerolog.Nop())
	f.matching.now = f.clock.Now
	return f
}

func (f *fixture) touchPosting(t *testing.T, i int, fn func(p *posting.Posting)) {
	t.Helper()
	var p posting.Posting
	f.store.mu.Lock()
	for _, sp := range f.store.state.postings {
		if sp.ID == f.postingIDs[i] {
			p = sp
		}
	}
	f.store.mu.Unlock()
	fn(&p)
	p.UpdatedAt = f.clock.Now()
	f.store.putPosting(p)
}

func statusByPosting(recs []recommendation.Record) map[uuid.UUID]recommendation.Record {
	out := map[uuid.UUID]recommendation.Record{}
	for _, r := range recs {
		out[r.PostingID] = r
	}
	return out
}

func TestRunMatching_FirstRunWritesPendingRecords(t *testing.T) {
	f := newFixture(t, 5)

	res, err := f.matching.RunMatching(context.Background(), f.applicantID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Outcome != metrics.OutcomeCompleted || res.Written != 5 || res.Removed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	recs := f.store.records(f.applicantID)
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Status != recommendation.StatusPending {
			t.Fatalf("new record status %q", r.Status)
		}
		if r.SimilarityScore < 0 || r.SimilarityScore > 1 {
			t.Fatalf("score out of range: %v", r.SimilarityScore)
		}
	}

	a := f.store.applicantByID(f.applicantID)
	if a.LastMatchedAt == nil || !a.LastMatchedAt.Equal(f.clock.Now()) {
		t.Fatalf("last matched not stamped: %v", a.LastMatchedAt)
	}
	if f.notifier.calls[f.applicantID] != 5 {
		t.Fatalf("notifier not called with count: %v", f.notifier.calls)
	}
}

func TestRunMatching_SkipsWhenFresh(t *testing.T) {
	f := newFixture(t, 3)
	if _, err := f.matching.RunMatching(context.Background(), f.applicantID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	before := f.store.upserts.Load()

	f.clock.Advance(time.Minute)
	res, err := f.matching.RunMatching(context.Background(), f.applicantID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Outcome != metrics.OutcomeSkippedFresh {
		t.Fatalf("expected skipped_fresh, got %q", res.Outcome)
	}
	if f.store.upserts.Load() != before {
		t.Fatalf("fresh run must not write")
	}
}

func TestRunMatching_ReRunsWhenApplicantOrPostingChanges(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	if _, err := f.matching.RunMatching(ctx, f.applicantID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	f.clock.Advance(time.Minute)
	f.touchPosting(t, 1, func(p *posting.Posting) { p.KeyTasks = append(p.KeyTasks, "write Go services") })
	f.clock.Advance(time.Second)
	res, err := f.matching.RunMatching(ctx, f.applicantID)
	if err != nil || res.Outcome != metrics.OutcomeCompleted {
		t.Fatalf("posting edit should trigger a run: %+v %v", res, err)
	}

	f.clock.Advance(time.Minute)
	a := f.store.applicantByID(f.applicantID)
	a.Introduction = "now into data engineering"
	a.UpdatedAt = f.clock.Now()
	f.store.putApplicant(a)
	f.clock.Advance(time.Second)
	res, err = f.matching.RunMatching(ctx, f.applicantID)
	if err != nil || res.Outcome != metrics.OutcomeCompleted {
		t.Fatalf("profile edit should trigger a run: %+v %v", res, err)
	}
}

func TestRunMatching_PreservesStickyStatuses(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	if _, err := f.matching.RunMatching(ctx, f.applicantID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	recs := statusByPosting(f.store.records(f.applicantID))
	submitted := recs[f.postingIDs[0]].ID
	skipped := recs[f.postingIDs[1]].ID
	viewed := recs[f.postingIDs[2]].ID
	f.store.setRecord(submitted, func(r *recommendation.Record) { r.Status = recommendation.StatusSubmitted })
	f.store.setRecord(skipped, func(r *recommendation.Record) { r.Status = recommendation.StatusSkipped })
	f.store.setRecord(viewed, func(r *recommendation.Record) { r.Status = recommendation.StatusViewed })

	f.clock.Advance(time.Minute)
	f.touchPosting(t, 3, func(p *posting.Posting) { p.Title = "Senior Intern" })
	f.clock.Advance(time.Second)
	if _, err := f.matching.RunMatching(ctx, f.applicantID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	after := statusByPosting(f.store.records(f.applicantID))
	if after[f.postingIDs[0]].Status != recommendation.StatusSubmitted {
		t.Fatalf("submitted not preserved: %q", after[f.postingIDs[0]].Status)
	}
	if after[f.postingIDs[1]].Status != recommendation.StatusSkipped {
		t.Fatalf("skipped not preserved: %q", after[f.postingIDs[1]].Status)
	}
	if after[f.postingIDs[2]].Status != recommendation.StatusPending {
		t.Fatalf("viewed should reset to pending: %q", after[f.postingIDs[2]].Status)
	}
	if after[f.postingIDs[0]].ID != submitted {
		t.Fatalf("record identity must survive a rematch")
	}
}

func TestRunMatching_RemovesRecordsForClosedPostings(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	if _, err := f.matching.RunMatching(ctx, f.applicantID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	f.clock.Advance(time.Minute)
	f.touchPosting(t, 0, func(p *posting.Posting) { p.Status = posting.StatusClosed })
	// closing alone does not make an open posting newer, so bump the profile.
	a := f.store.applicantByID(f.applicantID)
	a.UpdatedAt = f.clock.Now()
	f.store.putApplicant(a)
	f.clock.Advance(time.Second)

	res, err := f.matching.RunMatching(ctx, f.applicantID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Removed != 1 || res.Written != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := statusByPosting(f.store.records(f.applicantID))[f.postingIDs[0]]; ok {
		t.Fatalf("record for closed posting should be gone")
	}
}

func TestRunMatching_SkipsWhileLeaseHeld(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	lease, ok, err := f.locker.TryAcquire(ctx, lock.MatchingKey(f.applicantID), time.Minute)
	if err != nil || !ok {
		t.Fatalf("pre-acquire failed: %v %v", ok, err)
	}

	res, err := f.matching.RunMatching(ctx, f.applicantID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Outcome != metrics.OutcomeSkippedLocked {
		t.Fatalf("expected skipped_locked, got %q", res.Outcome)
	}
	if f.store.upserts.Load() != 0 {
		t.Fatalf("locked run must not write, got %d upserts", f.store.upserts.Load())
	}

	_ = lease.Release(ctx)
	if res, _ := f.matching.RunMatching(ctx, f.applicantID); res.Outcome != metrics.OutcomeCompleted {
		t.Fatalf("run after release should complete, got %q", res.Outcome)
	}
}

type gatedPostings struct {
	*memStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedPostings) ListOpen(ctx context.Context) ([]posting.Posting, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.memStore.ListOpen(ctx)
}

func TestRunMatching_ConcurrentRunsWriteOnce(t *testing.T) {
	f := newFixture(t, 4)
	gate := &gatedPostings{memStore: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	f.matching.postings = gate
	f.matching.ranking.postings = gate

	done := make(chan MatchResult, 1)
	go func() {
		res, _ := f.matching.RunMatching(context.Background(), f.applicantID)
		done <- res
	}()
	<-gate.entered

	res, err := f.matching.RunMatching(context.Background(), f.applicantID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Outcome != metrics.OutcomeSkippedLocked {
		t.Fatalf("second run should be skipped, got %q", res.Outcome)
	}

	close(gate.release)
	first := <-done
	if first.Outcome != metrics.OutcomeCompleted {
		t.Fatalf("first run should complete, got %q", first.Outcome)
	}
	if got := f.store.upserts.Load(); got != 4 {
		t.Fatalf("expected one run's worth of upserts (4), got %d", got)
	}
}

func TestRunMatching_FailureKeepsPreviousRecords(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	if _, err := f.matching.RunMatching(ctx, f.applicantID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	before := statusByPosting(f.store.records(f.applicantID))
	lastMatched := *f.store.applicantByID(f.applicantID).LastMatchedAt

	f.clock.Advance(time.Minute)
	f.touchPosting(t, 0, func(p *posting.Posting) { p.Status = posting.StatusClosed })
	f.touchPosting(t, 1, func(p *posting.Posting) { p.Title = "changed" })
	f.clock.Advance(time.Second)
	f.store.failUpsertAt = f.store.upserts.Load() + 2

	res, err := f.matching.RunMatching(ctx, f.applicantID)
	if !errors.Is(err, ErrInternal) || res.Outcome != metrics.OutcomeFailed {
		t.Fatalf("expected failed run, got %+v %v", res, err)
	}

	after := statusByPosting(f.store.records(f.applicantID))
	if len(after) != len(before) {
		t.Fatalf("partial delete leaked: %d -> %d records", len(before), len(after))
	}
	for pid, r := range before {
		if after[pid].SimilarityScore != r.SimilarityScore {
			t.Fatalf("partial upsert leaked for %v", pid)
		}
	}
	if !f.store.applicantByID(f.applicantID).LastMatchedAt.Equal(lastMatched) {
		t.Fatalf("last matched must not advance on failure")
	}

	// the lease is released, so the next run can proceed.
	f.store.failUpsertAt = 0
	if res, err := f.matching.RunMatching(ctx, f.applicantID); err != nil || res.Outcome != metrics.OutcomeCompleted {
		t.Fatalf("retry should complete: %+v %v", res, err)
	}
}

func TestRunMatching_InputErrors(t *testing.T) {
	f := newFixture(t, 1)
	if _, err := f.matching.RunMatching(context.Background(), uuid.Nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.matching.RunMatching(context.Background(), uuid.New()); !errors.Is(err, ErrApplicantNotFound) {
		t.Fatalf("expected ErrApplicantNotFound, got %v", err)
	}
}
