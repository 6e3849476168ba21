package sheets

import (
	"context"

	"chitieu/internal/core"
)

// Ports for spreadsheet adapters.
type (
	// MonthExporter writes a month report into its own sheet.
	MonthExporter interface {
		// ExportMonth replaces the content of the month's sheet and returns
		// a reference to the written range.
		ExportMonth(ctx context.Context, report core.MonthReport) (ref string, err error)
	}

	// TransactionImporter reads transactions kept in a spreadsheet. The
	// records are returned raw and go through the normalizer like any
	// other stored data.
	TransactionImporter interface {
		ImportTransactions(ctx context.Context) (map[string]core.RawRecord, error)
	}
)

// Workbook is a spreadsheet that can do both.
type Workbook interface {
	MonthExporter
	TransactionImporter
}
