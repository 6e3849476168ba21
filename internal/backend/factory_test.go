package backend

import (
	"context"
	"path/filepath"
	"testing"

	"golang.org/x/text/language"

	"chitieu/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
		seed    bool
	}{
		{"sqlite", "sqlite", false, false},
		{"memory seeds defaults", "memory", false, true},
		{"unknown", "sheets", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromAppConfig(&config.Config{DataBackend: tt.backend, SQLiteDBPath: "x.db", Language: "vi"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.SeedDefaults != tt.seed {
				t.Errorf("SeedDefaults = %v, want %v", cfg.SeedDefaults, tt.seed)
			}
		})
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestFactory_CreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	mem, err := f.CreateStore(ctx, Config{Type: MemoryBackend, SeedDefaults: true})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	defaults, _ := mem.Store.DefaultCategories(ctx)
	if len(defaults) != 24 {
		t.Errorf("memory store has %d default categories, want 24", len(defaults))
	}

	sqlite, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "test.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer sqlite.Cleanup()
	if err := sqlite.Store.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if _, err := f.CreateStore(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("expected error for sqlite without path")
	}
}

func TestFactory_CreateWorkbookFallsBackToMemory(t *testing.T) {
	res, err := NewFactory(nil).CreateWorkbook(context.Background(), Config{GoogleReportSheetBase: "Report", Language: language.English})
	if err != nil {
		t.Fatalf("CreateWorkbook: %v", err)
	}
	if res.Remote || res.Workbook == nil {
		t.Errorf("result = %+v", res)
	}
}
