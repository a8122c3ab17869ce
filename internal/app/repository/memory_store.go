package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/fatflowers/packledger/internal/app/service/lifecycle"
	models "github.com/fatflowers/packledger/internal/models"
)

// MemoryStore is a process-local Store. A single mutex makes Commit a
// compare-and-set on the assignment version; reads never wait on slow callers
// because they only copy rows out.
type MemoryStore struct {
	mu           sync.RWMutex
	assignments  map[string]*models.PackAssignment
	checkIns     map[string]*models.CheckIn
	byKey        map[string]string
	byAssignment map[string][]string
	logs         []*models.AssignmentLog
	members      MemberMatcher
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments:  make(map[string]*models.PackAssignment),
		checkIns:     make(map[string]*models.CheckIn),
		byKey:        make(map[string]string),
		byAssignment: make(map[string][]string),
	}
}

// UseMembers sets the directory used to resolve AssignmentQuery.MemberQuery.
func (s *MemoryStore) UseMembers(m MemberMatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = m
}

func idempotencyIndex(assignmentID, key string) string {
	return assignmentID + "\x00" + key
}

func (s *MemoryStore) CreateAssignment(_ context.Context, a *models.PackAssignment, log *models.AssignmentLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assignments[a.ID]; exists {
		return ErrConflict
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.assignments[a.ID] = a.Clone()
	if log != nil {
		log.CreatedAt = now
		s.logs = append(s.logs, log)
	}
	return nil
}

func (s *MemoryStore) GetAssignment(_ context.Context, id string) (*models.PackAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryStore) ListAssignments(ctx context.Context, q *AssignmentQuery) ([]*models.PackAssignment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members, queried map[string]struct{}
	if q.MemberIDs != nil {
		members = lo.SliceToMap(q.MemberIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	}
	if q.MemberQuery != "" {
		if s.members == nil {
			return nil, 0, errors.New("memory store: member query without a member matcher")
		}
		ids, err := s.members.SearchIDs(ctx, q.MemberQuery, 0)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to search members: %w", err)
		}
		queried = lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	}
	matched := make([]*models.PackAssignment, 0)
	for _, a := range s.assignments {
		if members != nil {
			if _, ok := members[a.MemberID]; !ok {
				continue
			}
		}
		if queried != nil {
			if _, ok := queried[a.MemberID]; !ok {
				continue
			}
		}
		if len(q.Statuses) > 0 && !lo.Contains(q.Statuses, lifecycle.Evaluate(a, q.Now)) {
			continue
		}
		matched = append(matched, a.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PurchasedAt.Equal(matched[j].PurchasedAt) {
			return matched[i].PurchasedAt.After(matched[j].PurchasedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	return paginate(matched, q.From, q.Size), total, nil
}

func (s *MemoryStore) ListReconcilable(_ context.Context, now time.Time, limit int) ([]*models.PackAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.PackAssignment, 0)
	for _, a := range s.assignments {
		if lifecycle.NeedsReconcile(a, now) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, 0, limit), nil
}

func (s *MemoryStore) FindCheckIn(_ context.Context, assignmentID, idempotencyKey string) (*models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[idempotencyIndex(assignmentID, idempotencyKey)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.checkIns[id].Clone(), nil
}

func (s *MemoryStore) GetCheckIn(_ context.Context, id string) (*models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkIns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) ListCheckIns(_ context.Context, q *CheckInQuery) ([]*models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.CheckIn, 0)
	for _, id := range s.byAssignment[q.AssignmentID] {
		c := s.checkIns[id]
		if q.After != nil && !q.After.less(c.CheckedInAt, c.ID) {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckedInAt.Equal(out[j].CheckedInAt) {
			return out[i].CheckedInAt.Before(out[j].CheckedInAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, 0, q.Size), nil
}

func (s *MemoryStore) CountActiveCheckIns(_ context.Context, assignmentID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(lo.CountBy(s.byAssignment[assignmentID], func(id string) bool {
		return !s.checkIns[id].Voided()
	})), nil
}

func (s *MemoryStore) Commit(_ context.Context, m *Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assignments[m.Assignment.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != m.ExpectedVersion {
		return ErrConflict
	}
	if m.NewCheckIn != nil {
		if _, dup := s.byKey[idempotencyIndex(m.NewCheckIn.AssignmentID, m.NewCheckIn.IdempotencyKey)]; dup {
			return ErrDuplicateKey
		}
	}
	if m.VoidCheckIn != nil {
		existing, ok := s.checkIns[m.VoidCheckIn.ID]
		if !ok {
			return ErrNotFound
		}
		if existing.Voided() {
			return ErrConflict
		}
	}

	now := time.Now()
	next := m.Assignment.Clone()
	next.Version = m.ExpectedVersion + 1
	next.UpdatedAt = now
	s.assignments[next.ID] = next
	m.Assignment.Version = next.Version
	m.Assignment.UpdatedAt = now

	if c := m.NewCheckIn; c != nil {
		c.CreatedAt = now
		s.checkIns[c.ID] = c.Clone()
		s.byKey[idempotencyIndex(c.AssignmentID, c.IdempotencyKey)] = c.ID
		s.byAssignment[c.AssignmentID] = append(s.byAssignment[c.AssignmentID], c.ID)
	}
	if v := m.VoidCheckIn; v != nil {
		existing := s.checkIns[v.ID]
		existing.VoidedAt = v.VoidedAt
		existing.VoidedBy = v.VoidedBy
		existing.VoidReason = v.VoidReason
	}
	if m.Log != nil {
		m.Log.CreatedAt = now
		s.logs = append(s.logs, m.Log)
	}
	return nil
}

// Logs returns the change log of one assignment in write order.
func (s *MemoryStore) Logs(assignmentID string) []*models.AssignmentLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.logs, func(l *models.AssignmentLog, _ int) bool { return l.AssignmentID == assignmentID })
}

func paginate[T any](items []T, from, size int) []T {
	if from < 0 {
		from = 0
	}
	if from >= len(items) {
		return items[:0]
	}
	items = items[from:]
	if size > 0 && size < len(items) {
		items = items[:size]
	}
	return items
}
