// Package report renders check-in history for front-desk reconciliation.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/fatflowers/packledger/internal/app/service/checkin"
	models "github.com/fatflowers/packledger/internal/models"
)

const (
	SummarySheet  = "Summary"
	CheckInsSheet = "Check-ins"

	exportPageSize = 500
	timeLayout     = "2006-01-02 15:04:05"
)

var checkInHeader = []any{"Check-in ID", "Checked in at", "Performed by", "Session", "Price override", "Idempotency key", "Voided at", "Voided by", "Void reason"}

// CollectCheckIns pages through the whole history of one assignment.
func CollectCheckIns(ctx context.Context, mgr checkin.CheckInManager, assignmentID string) ([]*models.CheckIn, error) {
	var all []*models.CheckIn
	cursor := ""
	for {
		page, err := mgr.ListCheckIns(ctx, &checkin.ListCheckInsRequest{AssignmentID: assignmentID, Cursor: cursor, Size: exportPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// WriteCheckInsXLSX writes a workbook with an assignment summary sheet and one
// row per check-in, voided ones included, in history order.
func WriteCheckInsXLSX(w io.Writer, a *models.PackAssignment, checkIns []*models.CheckIn) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	summary := [][]any{
		{"Assignment ID", a.ID},
		{"Member ID", a.MemberID},
		{"Pack template", a.PackTemplateID},
		{"Status", string(a.Status)},
		{"Total sessions", a.TotalSessions},
		{"Remaining sessions", a.RemainingSessions},
		{"Used sessions", a.UsedSessions()},
		{"Purchased at", a.PurchasedAt.UTC().Format(timeLayout)},
		{"Expires at", formatTime(a.ExpiresAt)},
		{"Payment status", string(a.PaymentStatus)},
		{"Amount paid", a.AmountPaid},
		{"Price total", a.PriceTotal},
		{"Currency", a.Currency},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(CheckInsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(CheckInsSheet, "A1", &checkInHeader); err != nil {
		return err
	}
	for i, c := range checkIns {
		row := []any{
			c.ID,
			c.CheckedInAt.UTC().Format(timeLayout),
			c.PerformedBy,
			lo.FromPtr(c.SessionName),
			optionalInt(c.SessionPriceOverride),
			c.IdempotencyKey,
			formatTime(c.VoidedAt),
			lo.FromPtr(c.VoidedBy),
			lo.FromPtr(c.VoidReason),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CheckInsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write check-in row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(CheckInsSheet, "A", "I", 22); err != nil {
		return err
	}
	return f.Write(w)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func optionalInt(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
