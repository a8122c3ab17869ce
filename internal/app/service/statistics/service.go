package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/packledger/internal/app/service/packerr"
	"github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/types"
)

type StatisticType string

const (
	// Check-in volume
	StatisticTypeDailyCheckInCount       StatisticType = "daily_check_in_count"
	StatisticTypeDailyVoidedCheckInCount StatisticType = "daily_voided_check_in_count"

	// Assignment related
	StatisticTypeDailyNewAssignmentCount StatisticType = "daily_new_assignment_count"
	StatisticTypeAssignmentStatusCount   StatisticType = "assignment_status_count"
	StatisticTypeConsumedSessions        StatisticType = "consumed_sessions_by_template"
)

var statisticTypes = []StatisticType{
	StatisticTypeDailyCheckInCount,
	StatisticTypeDailyVoidedCheckInCount,
	StatisticTypeDailyNewAssignmentCount,
	StatisticTypeAssignmentStatusCount,
	StatisticTypeConsumedSessions,
}

// filterFields are the pack_assignment columns a statistic request may filter on.
// Check-in statistics apply them to the owning assignment.
var filterFields = []string{"pack_template_id", "member_id", "payment_status", "purchased_at"}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`
}

func (r *StatisticRequest) validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return packerr.Invalid("data_items", "is required")
	}
	for _, f := range r.Filters {
		if f == nil || !lo.Contains(filterFields, f.Field) {
			return packerr.Invalid("filters", fmt.Sprintf("unsupported filter field %q", lo.FromPtr(f).Field))
		}
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return packerr.Invalid("data_items", fmt.Sprintf("unknown statistic %q", lo.FromPtr(di).ID))
		}
	}
	return nil
}

func (r *StatisticRequest) where() clause.Where {
	return clause.Where{Exprs: []clause.Expression{types.FiltersAnd(r.Filters)}}
}

type StatisticResponseDataItem struct {
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// Service provides reporting aggregates over assignments and check-ins.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Service { return &Service{db: db, now: time.Now} }

// derivedStatusSQL mirrors lifecycle.Evaluate.
const derivedStatusSQL = `CASE
  WHEN status = 'exhausted' THEN 'exhausted'
  WHEN status = 'expired' THEN 'expired'
  WHEN expires_at IS NOT NULL AND expires_at < @now THEN 'expired'
  WHEN status = 'paused' THEN 'paused'
  WHEN remaining_sessions <= 0 THEN 'exhausted'
  ELSE 'active'
END`

func (s *Service) assignments(ctx context.Context, req *StatisticRequest) *gorm.DB {
	return s.db.WithContext(ctx).Table(models.PackAssignment{}.TableName()).Where(req.where())
}

func (s *Service) checkIns(ctx context.Context, req *StatisticRequest) *gorm.DB {
	q := s.db.WithContext(ctx).Table(models.CheckIn{}.TableName())
	if len(req.Filters) > 0 {
		owners := s.db.Table(models.PackAssignment{}.TableName()).Select("id").Where(req.where())
		q = q.Where("assignment_id IN (?)", owners)
	}
	return q
}

func (s *Service) getDailyCheckInCount(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.checkIns(ctx, req).
		Select("TO_CHAR(checked_in_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("voided_at IS NULL").
		Group("TO_CHAR(checked_in_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyVoidedCheckInCount(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.checkIns(ctx, req).
		Select("TO_CHAR(voided_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("voided_at IS NOT NULL").
		Group("TO_CHAR(voided_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewAssignmentCount(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.assignments(ctx, req).
		Select("TO_CHAR(purchased_at, 'YYYY-MM-DD') as date, count(*) as value, sum(total_sessions) as value2").
		Group("TO_CHAR(purchased_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getAssignmentStatusCount(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.assignments(ctx, req).
		Select("("+derivedStatusSQL+") as label, count(*) as value", map[string]any{"now": s.now()}).
		Group("label").
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getConsumedSessions(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.assignments(ctx, req).
		Select("pack_template_id as label, sum(total_sessions - remaining_sessions) as value, sum(total_sessions) as value2").
		Group("pack_template_id").
		Order("pack_template_id")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, req *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyCheckInCount:
		return s.getDailyCheckInCount(ctx, req)
	case StatisticTypeDailyVoidedCheckInCount:
		return s.getDailyVoidedCheckInCount(ctx, req)
	case StatisticTypeDailyNewAssignmentCount:
		return s.getDailyNewAssignmentCount(ctx, req)
	case StatisticTypeAssignmentStatusCount:
		return s.getAssignmentStatusCount(ctx, req)
	case StatisticTypeConsumedSessions:
		return s.getConsumedSessions(ctx, req)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetStatistic computes every requested data item concurrently.
func (s *Service) GetStatistic(ctx context.Context, req *StatisticRequest) (*StatisticResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var wg sync.WaitGroup
	errChan := make(chan error, len(req.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(req.DataItems))

	for _, item := range req.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			res, err := s.getStatistic(ctx, req, di)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", di.ID, err)
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]StatisticResponseDataItem)
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	if err := <-errChan; err != nil {
		return nil, err
	}
	return &StatisticResponse{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
