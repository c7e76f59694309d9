package repository

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	path := writeCSV(t, `Date,Open,High,Low,Close,Volume
2024-06-05,103,104,102,103.5,900000
2024-06-03,100,102,99,101,1000000
2024-06-04,101,103,100,102,1100000
`)
	bars, err := LoadBarsCSV(path, "AAPL")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	// sorted by date regardless of file order
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Date.Before(bars[i].Date) {
			t.Fatalf("bars not sorted at %d", i)
		}
	}
	if bars[0].Symbol != "AAPL" || bars[0].Close != 101 {
		t.Fatalf("unexpected first bar: %+v", bars[0])
	}
}

func TestLoadBarsCSVReorderedColumns(t *testing.T) {
	path := writeCSV(t, `Volume,Close,Low,High,Open,Date
1000000,101,99,102,100,2024-06-03
`)
	bars, err := LoadBarsCSV(path, "SPY")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bars[0].Open != 100 || bars[0].Volume != 1000000 {
		t.Fatalf("columns misread: %+v", bars[0])
	}
}

func TestLoadBarsCSVErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "Date,Open,High,Low,Close\n2024-06-03,1,2,3,4\n",
		"bad date":       "Date,Open,High,Low,Close,Volume\nnot-a-date,1,2,3,4,5\n",
		"bad number":     "Date,Open,High,Low,Close,Volume\n2024-06-03,1,2,3,x,5\n",
	}
	for name, body := range cases {
		if _, err := LoadBarsCSV(writeCSV(t, body), "AAPL"); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadBarsCSV("no/such/file.csv", "AAPL"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
