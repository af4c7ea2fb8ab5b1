package writer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tradescanner/analytics"
	"tradescanner/models"
)

// ReportCSVHeader is the first line of a CSV analytics export.
const ReportCSVHeader = "symbol,exchange,session_start,session_end,body_high,body_low,midline,ath,atl,fib_level,midline_touch,body_high_touch,body_low_touch,fib_touch"

// ExportReports renders analytics reports. Absent values are null in JSON and
// empty in CSV.
func ExportReports(reports []analytics.Report, format Format) (string, error) {
	switch format {
	case JSON:
		if reports == nil {
			reports = []analytics.Report{}
		}
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode reports: %w", err)
		}
		return string(data), nil
	case CSV:
		lines := []string{ReportCSVHeader}
		for _, r := range reports {
			lines = append(lines, reportRow(r))
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", &UnsupportedFormat{Format: string(format)}
	}
}

func reportRow(r analytics.Report) string {
	row := []string{r.Symbol, r.Exchange.String()}
	if s := r.Session; s != nil {
		row = append(row, s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339), formatFloat(s.BodyHigh), formatFloat(s.BodyLow))
	} else {
		row = append(row, "", "", "", "")
	}
	row = append(row,
		optional(r.Midline),
		optional(r.ATH),
		optional(r.ATL),
		optional(r.FibLevel),
		touchTime(r.Touches.Midline),
		touchTime(r.Touches.BodyHigh),
		touchTime(r.Touches.BodyLow),
		touchTime(r.Touches.Fib),
	)
	return strings.Join(row, ",")
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func touchTime(t *models.Touch) string {
	if t == nil {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}
