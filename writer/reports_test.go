package writer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"tradescanner/analytics"
	"tradescanner/models"
)

func sampleReports() []analytics.Report {
	end := exportTime.Add(4 * time.Hour)
	return []analytics.Report{
		{
			Symbol:   "BTCUSDT",
			Exchange: models.Binance,
			Session:  &models.Session{Start: exportTime, End: end, BodyHigh: 105, BodyLow: 96, WickHigh: 105, WickLow: 96, Candles: 3},
			Midline:  models.Float(100.5),
			ATH:      models.Float(170),
			ATL:      models.Float(10),
			Ratio:    0.5,
			FibLevel: models.Float(90),
			Touches: analytics.Touches{
				Midline: &models.Touch{Time: end.Add(time.Minute), Price: 100.5},
			},
		},
		{Symbol: "NEWUSDT", Exchange: models.Binance, Ratio: 0.5},
	}
}

func TestExportReportsCSV(t *testing.T) {
	out, err := ExportReports(sampleReports(), CSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 3 || lines[0] != ReportCSVHeader {
		t.Fatalf("unexpected csv:\n%s", out)
	}
	want := "BTCUSDT,binance,2024-03-01T12:00:00Z,2024-03-01T16:00:00Z,105,96,100.5,170,10,90,2024-03-01T16:01:00Z,,,"
	if lines[1] != want {
		t.Fatalf("unexpected row\n got: %s\nwant: %s", lines[1], want)
	}
	if lines[2] != "NEWUSDT,binance,,,,,,,,,,,," {
		t.Fatalf("unexpected empty row %q", lines[2])
	}
	if got := strings.Count(lines[0], ","); got != strings.Count(lines[2], ",") {
		t.Fatalf("column count mismatch: header %d, row %d", got, strings.Count(lines[2], ","))
	}
}

func TestExportReportsJSON(t *testing.T) {
	out, err := ExportReports(sampleReports(), JSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &docs); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(docs) != 2 || docs[1]["session"] != nil || docs[0]["fib_level"] != 90.0 {
		t.Fatalf("unexpected reports: %v", docs)
	}

	if out, _ := ExportReports(nil, JSON); out != "[]" {
		t.Fatalf("expected empty array, got %q", out)
	}
	if _, err := ExportReports(nil, Format("xml")); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
