package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadGridMissingFile(t *testing.T) {
	if _, err := LoadGrid(filepath.Join(t.TempDir(), "absent.xlsx"), 3); err == nil {
		t.Error("LoadGrid() on a missing file should fail")
	}
}

func TestLoadGridCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	if err := os.WriteFile(path, []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadGrid(path, 3); err == nil {
		t.Error("LoadGrid() on a corrupt file should fail")
	}
}

func TestLoadGridMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.xlsx")

	f := excelize.NewFile()
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := LoadGrid(path, 3); err == nil {
		t.Error("LoadGrid() should fail when the sheet index is out of range")
	}
}

func TestLoadGridReadsSheetByIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	f := excelize.NewFile()
	for _, name := range []string{"Info", "Summary", "Report"} {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
	}
	row := []interface{}{"Naziv servisa", "Cena", "Opis", "01.03.2024."}
	if err := f.SetSheetRow("Report", "A1", &row); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rows, err := LoadGrid(path, 3)
	if err != nil {
		t.Fatalf("LoadGrid() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("LoadGrid() returned %d rows, want 1", len(rows))
	}
	if rows[0][0] != "Naziv servisa" {
		t.Errorf("first cell = %q", rows[0][0])
	}
}
