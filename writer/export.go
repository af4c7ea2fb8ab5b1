// Package writer renders scan snapshots and analytics reports and stores
// them locally or in S3.
package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tradescanner/models"
)

// Format is an export encoding.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// CSVHeader is the first line of every CSV snapshot export.
const CSVHeader = "symbol,exchange,price,volume_24h,timestamp"

// UnsupportedFormat is returned for an export format other than json or csv.
type UnsupportedFormat struct {
	Format string
}

func (e *UnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported export format: %s", e.Format)
}

// ParseFormat validates name as an export format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case JSON, CSV:
		return f, nil
	default:
		return "", &UnsupportedFormat{Format: name}
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv"
	}
	return "application/json"
}

type snapshotDocument struct {
	Timestamp *time.Time                               `json:"timestamp"`
	Results   map[models.Exchange][]models.TradingPair `json:"results"`
	Errors    map[models.Exchange]string               `json:"errors,omitempty"`
}

// Export renders snap in format. JSON groups pairs by exchange and adds an
// errors object naming every failed exchange. CSV lists one unquoted row per
// pair in result order.
func Export(snap models.Snapshot, format Format) (string, error) {
	switch format {
	case JSON:
		return exportJSON(snap)
	case CSV:
		return exportCSV(snap), nil
	default:
		return "", &UnsupportedFormat{Format: string(format)}
	}
}

func exportJSON(snap models.Snapshot) (string, error) {
	doc := snapshotDocument{Results: make(map[models.Exchange][]models.TradingPair, len(snap.Results))}
	if !snap.Timestamp.IsZero() {
		ts := snap.Timestamp
		doc.Timestamp = &ts
	}
	for _, r := range snap.Results {
		pairs := r.Pairs
		if pairs == nil {
			pairs = []models.TradingPair{}
		}
		doc.Results[r.Exchange] = pairs
		if !r.Success {
			if doc.Errors == nil {
				doc.Errors = make(map[models.Exchange]string)
			}
			doc.Errors[r.Exchange] = r.Error
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

func exportCSV(snap models.Snapshot) string {
	lines := []string{CSVHeader}
	for _, r := range snap.Results {
		for _, p := range r.Pairs {
			lines = append(lines, strings.Join([]string{
				p.Symbol,
				p.Exchange.String(),
				formatFloat(p.Price),
				formatFloat(p.Volume24h),
				p.Timestamp.Format(time.RFC3339Nano),
			}, ","))
		}
	}
	return strings.Join(lines, "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteFile writes text to path, creating parent directories as needed.
func WriteFile(path, text string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
