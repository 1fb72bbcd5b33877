package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

// LedgerSheet is the worksheet holding exported ledger rows
const LedgerSheet = "Batch Payments"

var ledgerHeaders = []string{
	"ID", "UTR Number", "Expense Count", "Total Amount", "Expense IDs", "Remarks", "Created At",
}

// LedgerExporter implements port.LedgerExporter as an XLSX workbook
type LedgerExporter struct {
	logger *zap.Logger
}

// NewLedgerExporter creates a ledger exporter
func NewLedgerExporter(logger *zap.Logger) *LedgerExporter {
	return &LedgerExporter{logger: logger}
}

// Export writes one header row and one row per entry
func (e *LedgerExporter) Export(entries []*entity.BatchPayment) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(ledgerHeaders))
	for i, h := range ledgerHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, entry := range entries {
		remarks := ""
		if entry.PaymentRemarks != nil {
			remarks = *entry.PaymentRemarks
		}
		row := []interface{}{
			entry.ID,
			entry.UTRNumber,
			entry.ExpenseCount,
			entry.TotalAmount,
			joinIDs(entry.ExpenseIDs),
			remarks,
			entry.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(LedgerSheet, "B", "B", 24); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(LedgerSheet, "E", "F", 32); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// Verify interface compliance
var _ port.LedgerExporter = (*LedgerExporter)(nil)
