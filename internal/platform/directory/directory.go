// Package directory resolves members owned by the member app.
package directory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/fatflowers/packledger/internal/app/service/packerr"
	"github.com/fatflowers/packledger/internal/models"
)

type Directory interface {
	Lookup(ctx context.Context, id string) (*models.Member, error)
	// SearchIDs returns ids of members whose display name or code contains query,
	// case-insensitively, capped at limit. limit <= 0 returns every match.
	SearchIDs(ctx context.Context, query string, limit int) ([]string, error)
}

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Lookup(ctx context.Context, id string) (*models.Member, error) {
	var m models.Member
	err := d.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, packerr.NotFound("member", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (d *GormDirectory) SearchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	var ids []string
	tx := d.db.WithContext(ctx).
		Model(&models.Member{}).
		Where(models.MemberSearchExpr(query)).
		Order("id")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	err := tx.Pluck("id", &ids).Error
	return ids, err
}

// Static is an in-memory directory.
type Static struct {
	mu      sync.RWMutex
	members map[string]*models.Member
}

func NewStatic(members ...*models.Member) *Static {
	s := &Static{members: make(map[string]*models.Member, len(members))}
	for _, m := range members {
		s.Put(m)
	}
	return s
}

func (s *Static) Put(m *models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.members[m.ID] = &cp
}

func (s *Static) Lookup(_ context.Context, id string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, packerr.NotFound("member", id)
	}
	cp := *m
	return &cp, nil
}

func (s *Static) SearchIDs(_ context.Context, query string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var ids []string
	for id, m := range s.members {
		if strings.Contains(strings.ToLower(m.DisplayName), q) || strings.Contains(strings.ToLower(m.Code), q) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewGormDirectory, fx.As(new(Directory)))),
)
