// Package backend builds the storage and spreadsheet adapters selected by
// the configuration.
package backend

import (
	"context"

	"golang.org/x/text/language"

	"chitieu/internal/ledger"
	"chitieu/internal/sheets"
)

// CleanupFunc releases what a backend holds.
type CleanupFunc func() error

type StoreResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

type WorkbookResult struct {
	Workbook sheets.Workbook
	// Remote is false for the in-memory workbook used when no spreadsheet
	// is configured.
	Remote bool
}

type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateWorkbook(ctx context.Context, config Config) (*WorkbookResult, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets, optional
	GoogleSpreadsheetID      string
	GoogleReportSheetBase    string
	GoogleTransactionsSheet  string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string
	Language                 language.Tag

	// SeedDefaults installs the built-in categories into a fresh memory
	// store.
	SeedDefaults bool
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
