// Command seed installs the default categories and, when SEED_USER_ID is
// set, imports that user's transactions from the spreadsheet or from the
// tab separated file named by SEED_TRANSACTIONS_FILE.
package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"chitieu/internal/aggregate"
	"chitieu/internal/backend"
	"chitieu/internal/cli"
	"chitieu/internal/core"
	applog "chitieu/internal/log"
	"chitieu/internal/services"
	"chitieu/internal/sheets"
	sheetsmem "chitieu/internal/sheets/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentLedger)
	cfg := cli.LoadAndValidateConfig(logger)
	loc, _ := cfg.Location()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	factory := backend.NewFactory(logger)
	storeRes, err := factory.CreateStore(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize store", err, "backend", cfg.DataBackend)
	}
	defer storeRes.Cleanup()

	deps := services.Deps{
		Store:        storeRes.Store,
		Reports:      services.NewReportService(storeRes.Store, aggregate.Pipeline{Location: loc}, nil),
		QueueExports: cfg.SheetsEnabled(),
		Location:     loc,
	}
	n, err := services.NewCategoryService(deps).SeedDefaults(ctx)
	if err != nil {
		cli.Fatal(logger, "Failed to seed default categories", err)
	}
	logger.Info("Default categories ready", "count", n)

	userID := strings.TrimSpace(os.Getenv("SEED_USER_ID"))
	if userID == "" {
		return
	}

	var source sheets.TransactionImporter
	if path := os.Getenv("SEED_TRANSACTIONS_FILE"); path != "" {
		source, err = sheetsmem.NewFromFile(path, cfg.GoogleReportSheetBase, cfg.LanguageTag())
		if err != nil {
			cli.Fatal(logger, "Failed to read transactions file", err, "path", path)
		}
	} else if cfg.SheetsEnabled() {
		wb, err := factory.CreateWorkbook(ctx, backendCfg)
		if err != nil {
			cli.Fatal(logger, "Failed to open spreadsheet", err)
		}
		source = wb.Workbook
	} else {
		logger.Warn("Nothing to import, set SEED_TRANSACTIONS_FILE or GOOGLE_SPREADSHEET_ID", "user_id", userID)
		return
	}

	imported, skipped, err := importTransactions(ctx, source, services.NewTransactionService(deps), loc, userID)
	if err != nil {
		cli.Fatal(logger, "Import failed", err, "user_id", userID)
	}
	logger.Info("Transactions imported", "user_id", userID, "imported", imported, "skipped", skipped)
}

// importTransactions stores every valid record for userID. Records already
// present under the same id are left alone so the import can be rerun.
func importTransactions(ctx context.Context, src sheets.TransactionImporter, txs *services.TransactionService, loc *time.Location, userID string) (int, int, error) {
	records, err := src.ImportTransactions(ctx)
	if err != nil {
		return 0, 0, err
	}
	valid, skipped := aggregate.Normalizer{Location: loc}.Normalize(records)

	imported := 0
	for _, tx := range valid {
		tx.UserID = userID
		if _, err := txs.Get(ctx, userID, tx.ID); err == nil {
			skipped++
			continue
		} else if !errors.Is(err, core.ErrNotFound) {
			return imported, skipped, err
		}
		if _, err := txs.Create(ctx, tx); err != nil {
			if errors.Is(err, core.ErrUnavailable) {
				return imported, skipped, err
			}
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped, nil
}
