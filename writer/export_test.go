package writer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tradescanner/models"
)

var exportTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		Timestamp: exportTime,
		Results: []models.ScanResult{
			{
				Exchange: models.Binance,
				Success:  true,
				Pairs: []models.TradingPair{
					{Symbol: "BTCUSDT", Exchange: models.Binance, Price: 45000, Volume24h: 1000000, Change24h: models.Float(2.5), Timestamp: exportTime},
					{Symbol: "ETHUSDT", Exchange: models.Binance, Price: 2500.25, Volume24h: 0.000001, Timestamp: exportTime},
				},
			},
			models.Failed(models.Coinbase, errors.New("request to /products failed after 3 attempt(s)"), time.Second, exportTime),
			{
				Exchange: models.Kraken,
				Success:  true,
				Pairs: []models.TradingPair{
					{Symbol: "XXBTZUSD", Exchange: models.Kraken, Price: 45010.1, Volume24h: 1500, Timestamp: exportTime},
				},
			},
		},
	}
}

func TestExportJSON(t *testing.T) {
	out, err := Export(sampleSnapshot(), JSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["timestamp"] != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", doc["timestamp"])
	}

	results := doc["results"].(map[string]interface{})
	if len(results) != 3 {
		t.Fatalf("expected every exchange in results, got %v", results)
	}
	if cb := results["coinbase"].([]interface{}); len(cb) != 0 {
		t.Fatalf("failed exchange must have no pairs, got %v", cb)
	}

	btc := results["binance"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"symbol", "exchange", "price", "volume_24h", "bid", "ask", "change_24h", "timestamp"} {
		if _, ok := btc[key]; !ok {
			t.Fatalf("pair missing key %q: %v", key, btc)
		}
	}
	if btc["bid"] != nil || btc["change_24h"] != 2.5 {
		t.Fatalf("unexpected optional fields: %v", btc)
	}

	errs, ok := doc["errors"].(map[string]interface{})
	if !ok || !strings.Contains(errs["coinbase"].(string), "failed after 3 attempt(s)") {
		t.Fatalf("expected coinbase failure marker, got %v", doc["errors"])
	}
}

func TestExportJSONWithoutFailuresOrScan(t *testing.T) {
	snap := sampleSnapshot()
	snap.Results = []models.ScanResult{snap.Results[0]}
	out, err := Export(snap, JSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Contains(out, `"errors"`) {
		t.Fatalf("errors key must be omitted when nothing failed:\n%s", out)
	}

	out, err = Export(models.Snapshot{}, JSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if v, ok := doc["timestamp"]; !ok || v != nil {
		t.Fatalf("expected null timestamp before any scan, got %v", v)
	}
}

func TestExportCSV(t *testing.T) {
	out, err := Export(sampleSnapshot(), CSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := strings.Join([]string{
		"symbol,exchange,price,volume_24h,timestamp",
		"BTCUSDT,binance,45000,1000000,2024-03-01T12:00:00Z",
		"ETHUSDT,binance,2500.25,0.000001,2024-03-01T12:00:00Z",
		"XXBTZUSD,kraken,45010.1,1500,2024-03-01T12:00:00Z",
	}, "\n")
	if out != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", out, want)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := Export(sampleSnapshot(), Format("xml"))
	var uf *UnsupportedFormat
	if !errors.As(err, &uf) || uf.Format != "xml" {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}

	if _, err := ParseFormat("parquet"); !errors.As(err, &uf) {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}
	if f, err := ParseFormat(" CSV "); err != nil || f != CSV {
		t.Fatalf("expected csv, got %q %v", f, err)
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "results.json")
	if err := WriteFile(path, "{}"); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("unexpected content %q", data)
	}
}
