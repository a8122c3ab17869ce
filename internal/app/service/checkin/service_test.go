package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/packledger/internal/app/repository"
	"github.com/fatflowers/packledger/internal/app/service/occ"
	"github.com/fatflowers/packledger/internal/app/service/packerr"
	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/logctx"
	"github.com/fatflowers/packledger/pkg/metrics"
	types "github.com/fatflowers/packledger/pkg/types"
)

type recordedAttempts struct {
	mu   sync.Mutex
	logs []*models.CheckInAttemptLog
}

func (r *recordedAttempts) Save(_ context.Context, l *models.CheckInAttemptLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
}

func (r *recordedAttempts) statuses() []types.CheckInAttemptStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.logs, func(l *models.CheckInAttemptLog, _ int) types.CheckInAttemptStatus { return l.Status })
}

type fixture struct {
	svc      *Service
	store    *repository.MemoryStore
	attempts *recordedAttempts
	now      time.Time
	mu       sync.Mutex
}

func newFixture(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		attempts: &recordedAttempts{},
		now:      time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC),
	}
	policy := occ.Policy{MaxAttempts: maxAttempts, BackoffBase: time.Microsecond, BackoffCap: 50 * time.Microsecond}
	f.svc = newService(f.store, policy, f.attempts, metrics.NewLedger(prometheus.NewRegistry()), zap.NewNop().Sugar())
	f.svc.now = f.clock
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) seed(t *testing.T, total int, expiresAt *time.Time) *models.PackAssignment {
	t.Helper()
	a := &models.PackAssignment{
		ID:                fmt.Sprintf("a-%d-%d", total, time.Now().UnixNano()),
		MemberID:          "m1",
		PackTemplateID:    "tpl",
		TotalSessions:     total,
		RemainingSessions: total,
		PurchasedAt:       f.clock(),
		ExpiresAt:         expiresAt,
		Status:            types.AssignmentStatusActive,
		PaymentStatus:     types.PaymentStatusUnpaid,
	}
	require.NoError(t, f.store.CreateAssignment(context.Background(), a, nil))
	return a
}

func (f *fixture) checkIn(ctx context.Context, assignmentID, key string) (*RecordCheckInResult, error) {
	return f.svc.RecordCheckIn(ctx, &RecordCheckInRequest{AssignmentID: assignmentID, IdempotencyKey: key, PerformedBy: "desk-1"})
}

// requireLedgerConsistent checks 0 <= remaining <= total and that non-voided
// check-ins account for every consumed session.
func (f *fixture) requireLedgerConsistent(t *testing.T, id string) *models.PackAssignment {
	t.Helper()
	a, err := f.store.GetAssignment(context.Background(), id)
	require.NoError(t, err)
	require.GreaterOrEqual(t, a.RemainingSessions, 0)
	require.LessOrEqual(t, a.RemainingSessions, a.TotalSessions)
	n, err := f.store.CountActiveCheckIns(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, int64(a.TotalSessions-a.RemainingSessions), n)
	return a
}

func TestRecordCheckIn_ThreeSessionScenario(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	a := f.seed(t, 3, nil)

	var third *models.CheckIn
	for i, want := range []int{2, 1, 0} {
		f.advance(time.Minute)
		res, err := f.checkIn(ctx, a.ID, fmt.Sprintf("visit-%d", i+1))
		require.NoError(t, err)
		require.False(t, res.Replayed)
		assert.Equal(t, want, res.Assignment.RemainingSessions)
		third = res.CheckIn
		f.requireLedgerConsistent(t, a.ID)
	}

	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, types.AssignmentStatusExhausted, stored.Status)

	_, err := f.checkIn(ctx, a.ID, "visit-4")
	var ie *packerr.IneligibleError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, types.AssignmentStatusExhausted, ie.Reason)

	replay, err := f.checkIn(ctx, a.ID, "visit-3")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, third.ID, replay.CheckIn.ID)
	assert.Equal(t, third.CheckedInAt, replay.CheckIn.CheckedInAt)
	assert.Equal(t, 0, replay.Assignment.RemainingSessions)
	f.requireLedgerConsistent(t, a.ID)

	assert.Equal(t, []types.CheckInAttemptStatus{
		types.CheckInAttemptStatusRecorded,
		types.CheckInAttemptStatusRecorded,
		types.CheckInAttemptStatusRecorded,
		types.CheckInAttemptStatusRejected,
		types.CheckInAttemptStatusReplayed,
	}, f.attempts.statuses())
}

func TestRecordCheckIn_SameKeyTwiceDebitsOnce(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	a := f.seed(t, 5, nil)

	first, err := f.checkIn(ctx, a.ID, "k")
	require.NoError(t, err)
	second, err := f.checkIn(ctx, a.ID, "k")
	require.NoError(t, err)

	assert.Equal(t, first.CheckIn.ID, second.CheckIn.ID)
	assert.True(t, second.Replayed)
	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, 4, stored.RemainingSessions)
}

func TestRecordCheckIn_ConcurrentDistinctKeys(t *testing.T) {
	const n = 16
	f := newFixture(t, n+1)
	a := f.seed(t, n, nil)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.checkIn(context.Background(), a.ID, fmt.Sprintf("terminal-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "call %d", i)
	}
	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, 0, stored.RemainingSessions)
	assert.Equal(t, types.AssignmentStatusExhausted, stored.Status)

	_, err := f.checkIn(context.Background(), a.ID, "one-too-many")
	require.ErrorIs(t, err, packerr.ErrIneligible)
}

func TestRecordCheckIn_ConcurrentSameKey(t *testing.T) {
	const n = 12
	f := newFixture(t, n+1)
	a := f.seed(t, 5, nil)

	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.checkIn(context.Background(), a.ID, "same-visit")
			errs[i] = err
			if err == nil {
				ids[i] = res.CheckIn.ID
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, lo.Uniq(ids), 1)
	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, 4, stored.RemainingSessions)
}

func TestRecordCheckIn_Expiry(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	exp := f.clock().Add(time.Hour)
	a := f.seed(t, 4, &exp)

	_, err := f.checkIn(ctx, a.ID, "before")
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.checkIn(ctx, a.ID, "at-boundary")
	require.NoError(t, err, "expiresAt itself is still valid")

	f.advance(time.Nanosecond)
	_, err = f.checkIn(ctx, a.ID, "after")
	var ie *packerr.IneligibleError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, types.AssignmentStatusExpired, ie.Reason)

	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, 2, stored.RemainingSessions)
}

func TestRecordCheckIn_PausedIsIneligibleUntilResumed(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	a := f.seed(t, 2, nil)

	stored, err := f.store.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	paused := stored.Clone()
	paused.Status = types.AssignmentStatusPaused
	require.NoError(t, f.store.Commit(ctx, &repository.Mutation{ExpectedVersion: stored.Version, Assignment: paused}))

	_, err = f.checkIn(ctx, a.ID, "k1")
	var ie *packerr.IneligibleError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, types.AssignmentStatusPaused, ie.Reason)

	resumed := paused.Clone()
	resumed.Status = types.AssignmentStatusActive
	require.NoError(t, f.store.Commit(ctx, &repository.Mutation{ExpectedVersion: paused.Version, Assignment: resumed}))

	_, err = f.checkIn(ctx, a.ID, "k1")
	require.NoError(t, err)
}

func TestRecordCheckIn_PaymentStatusNeverGates(t *testing.T) {
	f := newFixture(t, 3)
	a := f.seed(t, 1, nil)
	require.Equal(t, types.PaymentStatusUnpaid, a.PaymentStatus)

	_, err := f.checkIn(context.Background(), a.ID, "k")
	require.NoError(t, err)
}

func TestRecordCheckIn_Validation(t *testing.T) {
	f := newFixture(t, 3)
	a := f.seed(t, 1, nil)
	ctx := context.Background()

	_, err := f.svc.RecordCheckIn(ctx, &RecordCheckInRequest{AssignmentID: a.ID, PerformedBy: "desk"})
	require.ErrorIs(t, err, packerr.ErrValidation)

	_, err = f.svc.RecordCheckIn(ctx, &RecordCheckInRequest{AssignmentID: a.ID, IdempotencyKey: string(make([]byte, 129)), PerformedBy: "desk"})
	require.ErrorIs(t, err, packerr.ErrValidation)

	_, err = f.svc.RecordCheckIn(ctx, &RecordCheckInRequest{AssignmentID: a.ID, IdempotencyKey: "k"})
	require.ErrorIs(t, err, packerr.ErrValidation, "performer is required without an operator")

	opCtx := context.WithValue(ctx, logctx.OperatorIDKey, "staff-9")
	res, err := f.svc.RecordCheckIn(opCtx, &RecordCheckInRequest{AssignmentID: a.ID, IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "staff-9", res.CheckIn.PerformedBy)

	_, err = f.checkIn(ctx, "missing", "k")
	require.ErrorIs(t, err, packerr.ErrNotFound)
	f.requireLedgerConsistent(t, a.ID)
}

type alwaysConflict struct {
	*repository.MemoryStore
	commits int
	mu      sync.Mutex
}

func (s *alwaysConflict) Commit(context.Context, *repository.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	return repository.ErrConflict
}

func TestRecordCheckIn_ContentionLeavesNoPartialState(t *testing.T) {
	f := newFixture(t, 4)
	a := f.seed(t, 3, nil)
	store := &alwaysConflict{MemoryStore: f.store}
	f.svc.store = store

	_, err := f.checkIn(context.Background(), a.ID, "k")
	var ce *packerr.ContentionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 4, ce.Attempts)
	assert.Equal(t, 4, store.commits)

	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, 3, stored.RemainingSessions)
	assert.Equal(t, []types.CheckInAttemptStatus{types.CheckInAttemptStatusFailed}, f.attempts.statuses())
}

func TestListCheckIns_Pagination(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	a := f.seed(t, 7, nil)
	for i := 0; i < 7; i++ {
		f.advance(time.Minute)
		_, err := f.checkIn(ctx, a.ID, fmt.Sprintf("k%d", i))
		require.NoError(t, err)
	}

	var keys []string
	cursor := ""
	pages := 0
	for {
		res, err := f.svc.ListCheckIns(ctx, &ListCheckInsRequest{AssignmentID: a.ID, Cursor: cursor, Size: 3})
		require.NoError(t, err)
		pages++
		for _, c := range res.Items {
			keys = append(keys, c.IdempotencyKey)
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6"}, keys)

	all, err := f.svc.ListCheckIns(ctx, &ListCheckInsRequest{AssignmentID: a.ID})
	require.NoError(t, err)
	assert.Len(t, all.Items, 7)
	assert.Empty(t, all.NextCursor)

	_, err = f.svc.ListCheckIns(ctx, &ListCheckInsRequest{AssignmentID: a.ID, Cursor: "%%%"})
	require.ErrorIs(t, err, packerr.ErrValidation)

	_, err = f.svc.ListCheckIns(ctx, &ListCheckInsRequest{AssignmentID: "missing"})
	require.ErrorIs(t, err, packerr.ErrNotFound)
}

func TestVoidCheckIn_RestoresSessionOnce(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	a := f.seed(t, 2, nil)

	_, err := f.checkIn(ctx, a.ID, "k1")
	require.NoError(t, err)
	second, err := f.checkIn(ctx, a.ID, "k2")
	require.NoError(t, err)
	require.Equal(t, types.AssignmentStatusExhausted, second.Assignment.Status)

	res, err := f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: second.CheckIn.ID, Reason: "double scan", PerformedBy: "manager"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assignment.RemainingSessions)
	assert.Equal(t, types.AssignmentStatusActive, res.Assignment.Status)
	assert.True(t, res.CheckIn.Voided())
	f.requireLedgerConsistent(t, a.ID)

	_, err = f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: second.CheckIn.ID, Reason: "again", PerformedBy: "manager"})
	require.ErrorIs(t, err, packerr.ErrInvalidTransition)

	// the voided key still replays and never debits again
	replay, err := f.checkIn(ctx, a.ID, "k2")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.True(t, replay.CheckIn.Voided())
	stored := f.requireLedgerConsistent(t, a.ID)
	assert.Equal(t, 1, stored.RemainingSessions)

	logs := f.store.Logs(a.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, types.AssignmentChangeReasonVoidCheckIn, logs[0].Reason)
	assert.Equal(t, second.CheckIn.ID, logs[0].Extra["check_in_id"])

	_, err = f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: "missing", Reason: "x", PerformedBy: "manager"})
	require.ErrorIs(t, err, packerr.ErrNotFound)
	_, err = f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: second.CheckIn.ID, PerformedBy: "manager"})
	require.ErrorIs(t, err, packerr.ErrValidation)
}

func TestVoidCheckIn_ExpiredStaysExpired(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	exp := f.clock().Add(time.Hour)
	a := f.seed(t, 1, &exp)

	res, err := f.checkIn(ctx, a.ID, "k1")
	require.NoError(t, err)
	f.advance(2 * time.Hour)

	voided, err := f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: res.CheckIn.ID, Reason: "refund", PerformedBy: "manager"})
	require.NoError(t, err)
	assert.Equal(t, 1, voided.Assignment.RemainingSessions)
	assert.Equal(t, types.AssignmentStatusExpired, voided.Assignment.Status)
	f.requireLedgerConsistent(t, a.ID)
}

func TestRecordCheckIn_ReplayReturnsStoredTimestamp(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.now = time.Date(2026, 2, 1, 18, 0, 0, 987654321, time.UTC)
	a := f.seed(t, 3, nil)

	first, err := f.checkIn(ctx, a.ID, "k1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 18, 0, 0, 987654000, time.UTC), first.CheckIn.CheckedInAt)

	f.advance(time.Minute)
	replay, err := f.checkIn(ctx, a.ID, "k1")
	require.NoError(t, err)
	require.True(t, replay.Replayed)
	assert.Equal(t, first.CheckIn, replay.CheckIn)
}

func TestVoidCheckIn_NothingToRestoreIsInvalidTransition(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	a := f.seed(t, 2, nil)

	// a check-in row that never debited, so the pack is still full
	stray := &models.CheckIn{ID: "c-stray", AssignmentID: a.ID, IdempotencyKey: "stray", CheckedInAt: f.clock(), PerformedBy: "import"}
	require.NoError(t, f.store.Commit(ctx, &repository.Mutation{ExpectedVersion: a.Version, Assignment: a.Clone(), NewCheckIn: stray}))

	_, err := f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: stray.ID, Reason: "cleanup", PerformedBy: "manager"})
	var it *packerr.InvalidTransitionError
	require.True(t, errors.As(err, &it))
	assert.Contains(t, it.Error(), "no consumed session")

	stored, err := f.store.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RemainingSessions)
}

func TestVoidCheckIn_ContentionNamesAssignment(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	a := f.seed(t, 2, nil)
	res, err := f.checkIn(ctx, a.ID, "k1")
	require.NoError(t, err)

	store := &alwaysConflict{MemoryStore: f.store}
	f.svc.store = store
	_, err = f.svc.VoidCheckIn(ctx, &VoidCheckInRequest{CheckInID: res.CheckIn.ID, Reason: "double scan", PerformedBy: "manager"})
	var ce *packerr.ContentionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, a.ID, ce.AssignmentID)
	assert.Equal(t, 2, store.commits)
	f.requireLedgerConsistent(t, a.ID)
}
