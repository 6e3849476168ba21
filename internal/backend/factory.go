package backend

import (
	"context"
	"fmt"

	"chitieu/internal/categories"
	"chitieu/internal/core"
	"chitieu/internal/ledger/memory"
	applog "chitieu/internal/log"
	gsheet "chitieu/internal/sheets/google"
	sheetsmem "chitieu/internal/sheets/memory"
	"chitieu/internal/storage"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		var defaults []core.Category
		if config.SeedDefaults {
			defaults = categories.Defaults()
		}
		store := memory.New(defaults)
		f.logger.InfoContext(ctx, "Initialized memory backend", "default_categories", len(defaults))
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateWorkbook connects to Google Sheets when a spreadsheet is configured
// and falls back to an in-memory workbook otherwise.
func (f *DefaultFactory) CreateWorkbook(ctx context.Context, config Config) (*WorkbookResult, error) {
	if !config.SheetsEnabled() {
		f.logger.InfoContext(ctx, "No spreadsheet configured, using in-memory workbook")
		return &WorkbookResult{
			Workbook: sheetsmem.New(config.GoogleReportSheetBase, config.Language),
		}, nil
	}

	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ReportSheetBase:    config.GoogleReportSheetBase,
		TransactionsSheet:  config.GoogleTransactionsSheet,
		Language:           config.Language,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientJSON:    config.GoogleOAuthClientJSON,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets workbook", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &WorkbookResult{Workbook: cli, Remote: true}, nil
}
