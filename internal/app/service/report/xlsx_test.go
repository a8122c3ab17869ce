package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fatflowers/packledger/internal/app/service/checkin"
	models "github.com/fatflowers/packledger/internal/models"
	types "github.com/fatflowers/packledger/pkg/types"
)

func TestWriteCheckInsXLSX(t *testing.T) {
	at := time.Date(2026, 4, 2, 17, 30, 0, 0, time.UTC)
	a := &models.PackAssignment{
		ID: "a1", MemberID: "m1", PackTemplateID: "pt12", Status: types.AssignmentStatusActive,
		TotalSessions: 12, RemainingSessions: 10, PurchasedAt: at.AddDate(0, 0, -3),
		PaymentStatus: types.PaymentStatusPaid, Currency: "EUR",
	}
	checkIns := []*models.CheckIn{
		{ID: "c1", CheckedInAt: at, PerformedBy: "desk-1", IdempotencyKey: "k1", SessionName: lo.ToPtr("Morning PT")},
		{ID: "c2", CheckedInAt: at.Add(time.Hour), PerformedBy: "desk-2", IdempotencyKey: "k2",
			SessionPriceOverride: lo.ToPtr(int64(4500)), VoidedAt: lo.ToPtr(at.Add(2 * time.Hour)), VoidedBy: lo.ToPtr("manager"), VoidReason: lo.ToPtr("double scan")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCheckInsXLSX(&buf, a, checkIns))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SummarySheet, CheckInsSheet}, f.GetSheetList())

	rows, err := f.GetRows(CheckInsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Check-in ID", rows[0][0])
	require.Equal(t, []string{"c1", "2026-04-02 17:30:00", "desk-1", "Morning PT", "", "k1"}, rows[1])
	require.Equal(t, "4500", rows[2][4])
	require.Equal(t, "double scan", rows[2][8])

	used, err := f.GetCellValue(SummarySheet, "B7")
	require.NoError(t, err)
	require.Equal(t, "2", used)
}

type pagedManager struct {
	checkin.CheckInManager
	items []*models.CheckIn
	calls int
}

func (m *pagedManager) ListCheckIns(_ context.Context, req *checkin.ListCheckInsRequest) (*checkin.ListCheckInsResponse, error) {
	m.calls++
	start := 0
	if req.Cursor != "" {
		start = 2
	}
	end := lo.Min([]int{start + 2, len(m.items)})
	res := &checkin.ListCheckInsResponse{Items: m.items[start:end]}
	if end < len(m.items) {
		res.NextCursor = "next"
	}
	return res, nil
}

func TestCollectCheckIns(t *testing.T) {
	m := &pagedManager{items: []*models.CheckIn{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}
	all, err := CollectCheckIns(context.Background(), m, "a1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 2, m.calls)
}
