package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/types"
)

func seedAssignment(t *testing.T, s *MemoryStore, id, member string, remaining int, expiresAt *time.Time) *models.PackAssignment {
	t.Helper()
	a := &models.PackAssignment{
		ID:                id,
		MemberID:          member,
		PackTemplateID:    "pt",
		TotalSessions:     5,
		RemainingSessions: remaining,
		PurchasedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:         expiresAt,
		Status:            types.AssignmentStatusActive,
		PaymentStatus:     types.PaymentStatusPaid,
	}
	require.NoError(t, s.CreateAssignment(context.Background(), a, nil))
	return a
}

func TestMemoryStore_CommitIsConditionalOnVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAssignment(t, s, "a1", "m1", 5, nil)

	read, err := s.GetAssignment(ctx, "a1")
	require.NoError(t, err)

	next := read.Clone()
	next.RemainingSessions = 4
	ci := &models.CheckIn{ID: "c1", AssignmentID: "a1", IdempotencyKey: "k1", CheckedInAt: time.Now()}
	require.NoError(t, s.Commit(ctx, &Mutation{ExpectedVersion: read.Version, Assignment: next, NewCheckIn: ci}))
	require.Equal(t, int64(1), next.Version)

	// a second writer holding the stale read loses
	stale := read.Clone()
	stale.RemainingSessions = 4
	err = s.Commit(ctx, &Mutation{ExpectedVersion: read.Version, Assignment: stale,
		NewCheckIn: &models.CheckIn{ID: "c2", AssignmentID: "a1", IdempotencyKey: "k2", CheckedInAt: time.Now()}})
	require.ErrorIs(t, err, ErrConflict)

	_, err = s.GetCheckIn(ctx, "c2")
	require.ErrorIs(t, err, ErrNotFound, "lost write must leave no check-in behind")

	got, err := s.GetAssignment(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 4, got.RemainingSessions)
	n, err := s.CountActiveCheckIns(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestMemoryStore_DuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAssignment(t, s, "a1", "m1", 5, nil)

	a, _ := s.GetAssignment(ctx, "a1")
	next := a.Clone()
	next.RemainingSessions--
	require.NoError(t, s.Commit(ctx, &Mutation{ExpectedVersion: a.Version, Assignment: next,
		NewCheckIn: &models.CheckIn{ID: "c1", AssignmentID: "a1", IdempotencyKey: "same"}}))

	a, _ = s.GetAssignment(ctx, "a1")
	next = a.Clone()
	next.RemainingSessions--
	err := s.Commit(ctx, &Mutation{ExpectedVersion: a.Version, Assignment: next,
		NewCheckIn: &models.CheckIn{ID: "c2", AssignmentID: "a1", IdempotencyKey: "same"}})
	require.ErrorIs(t, err, ErrDuplicateKey)

	got, _ := s.GetAssignment(ctx, "a1")
	require.Equal(t, 4, got.RemainingSessions)

	found, err := s.FindCheckIn(ctx, "a1", "same")
	require.NoError(t, err)
	require.Equal(t, "c1", found.ID)

	// the same key on another assignment is independent
	seedAssignment(t, s, "a2", "m1", 5, nil)
	_, err = s.FindCheckIn(ctx, "a2", "same")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_VoidCheckInOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAssignment(t, s, "a1", "m1", 5, nil)

	a, _ := s.GetAssignment(ctx, "a1")
	next := a.Clone()
	next.RemainingSessions = 4
	require.NoError(t, s.Commit(ctx, &Mutation{ExpectedVersion: a.Version, Assignment: next,
		NewCheckIn: &models.CheckIn{ID: "c1", AssignmentID: "a1", IdempotencyKey: "k"}}))

	voidedAt := time.Now()
	void := &models.CheckIn{ID: "c1", VoidedAt: &voidedAt}

	a, _ = s.GetAssignment(ctx, "a1")
	restored := a.Clone()
	restored.RemainingSessions = 5
	require.NoError(t, s.Commit(ctx, &Mutation{ExpectedVersion: a.Version, Assignment: restored, VoidCheckIn: void,
		Log: &models.AssignmentLog{ID: "l1", AssignmentID: "a1", Reason: types.AssignmentChangeReasonVoidCheckIn}}))

	a, _ = s.GetAssignment(ctx, "a1")
	again := a.Clone()
	require.ErrorIs(t, s.Commit(ctx, &Mutation{ExpectedVersion: a.Version, Assignment: again, VoidCheckIn: void}), ErrConflict)

	n, _ := s.CountActiveCheckIns(ctx, "a1")
	require.Zero(t, n)
	require.Len(t, s.Logs("a1"), 1)
}

func TestMemoryStore_ListAssignmentsFiltersOnDerivedStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	seedAssignment(t, s, "active", "m1", 3, nil)
	seedAssignment(t, s, "lapsed", "m1", 3, &past)
	seedAssignment(t, s, "other-member", "m2", 3, nil)

	rows, total, err := s.ListAssignments(ctx, &AssignmentQuery{Statuses: []types.AssignmentStatus{types.AssignmentStatusExpired}, Now: now})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "lapsed", rows[0].ID)
	require.Equal(t, types.AssignmentStatusActive, rows[0].Status, "store returns stored rows; derivation happens in the service")

	rows, total, err = s.ListAssignments(ctx, &AssignmentQuery{MemberIDs: []string{"m1"}, Statuses: []types.AssignmentStatus{types.AssignmentStatusActive}, Now: now})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "active", rows[0].ID)

	rows, total, err = s.ListAssignments(ctx, &AssignmentQuery{MemberIDs: []string{}, Now: now})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, rows)

	_, total, err = s.ListAssignments(ctx, &AssignmentQuery{Now: now, Size: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)

	stale, err := s.ListReconcilable(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, "lapsed", stale[0].ID)
}

func TestMemoryStore_ListCheckInsIsRestartable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedAssignment(t, s, "a1", "m1", 5, nil)
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		a, _ := s.GetAssignment(ctx, "a1")
		next := a.Clone()
		next.RemainingSessions--
		require.NoError(t, s.Commit(ctx, &Mutation{ExpectedVersion: a.Version, Assignment: next, NewCheckIn: &models.CheckIn{
			ID: fmt.Sprintf("c%d", i), AssignmentID: "a1", IdempotencyKey: fmt.Sprintf("k%d", i), CheckedInAt: base.Add(time.Duration(i) * time.Hour),
		}}))
	}

	var seen []string
	var cursor *Cursor
	for {
		page, err := s.ListCheckIns(ctx, &CheckInQuery{AssignmentID: "a1", After: cursor, Size: 2})
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, c := range page {
			seen = append(seen, c.ID)
		}
		decoded, err := DecodeCursor(EncodeCursor(CursorAfter(page[len(page)-1])))
		require.NoError(t, err)
		cursor = decoded
	}
	require.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, seen)
}

func TestDecodeCursor(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = DecodeCursor("%%%")
	require.Error(t, err)

	at := time.Date(2026, 2, 1, 8, 0, 0, 123, time.UTC)
	c, err = DecodeCursor(EncodeCursor(&Cursor{CheckedInAt: at, ID: "c9"}))
	require.NoError(t, err)
	require.True(t, at.Equal(c.CheckedInAt))
	require.Equal(t, "c9", c.ID)
}
