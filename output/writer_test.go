package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2015", "NIFTY", "FUTIDX")

	if err := EnsureDir(dir); err != nil {
		t.Fatalf("first EnsureDir: %v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("second EnsureDir should be a no-op: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("%q is not a directory", dir)
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")

	if err := WriteFile(path, []byte("first\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFile(path, []byte("second\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("content = %q, want %q", data, "second\n")
	}
}

func TestRecordsToCSV(t *testing.T) {
	records := []map[string]any{
		{"FH_TIMESTAMP": "01-Feb-2024", "FH_SYMBOL": "NIFTY", "FH_CLOSE": 21725.5},
		{"FH_TIMESTAMP": "02-Feb-2024", "FH_SYMBOL": "NIFTY", "FH_CLOSE": 21853.0, "FH_EXTRA": true},
	}

	data, err := RecordsToCSV(records)
	if err != nil {
		t.Fatalf("RecordsToCSV: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	wantHeader := []string{"FH_CLOSE", "FH_EXTRA", "FH_SYMBOL", "FH_TIMESTAMP"}
	for i, column := range wantHeader {
		if rows[0][i] != column {
			t.Fatalf("header = %v, want %v", rows[0], wantHeader)
		}
	}

	// First record has no FH_EXTRA; missing values render empty.
	if rows[1][0] != "21725.5" || rows[1][1] != "" || rows[1][3] != "01-Feb-2024" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][0] != "21853" || rows[2][1] != "true" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}

func TestRecordsToCSVEmpty(t *testing.T) {
	if _, err := RecordsToCSV(nil); err == nil {
		t.Fatalf("expected error for empty record set")
	}
}
