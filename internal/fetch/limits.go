package fetch

import (
	"net/http"
	"strconv"
	"strings"

	"tradescanner/logger"
	"tradescanner/models"
)

// meteredTransport reports rate limit responses and Binance used-weight
// headers for every request sent through an exchange's HTTP client.
type meteredTransport struct {
	next     http.RoundTripper
	exchange models.Exchange
	log      *logger.Log
}

func (t *meteredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || t.log == nil {
		return resp, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		ReportRateLimitExceeded(t.log, t.exchange, req.URL.Path)
	case resp.StatusCode == http.StatusTeapot:
		// Binance answers 418 once an IP has been banned for ignoring 429s.
		ReportIPBan(t.log, t.exchange, req.URL.Path)
	}

	if used := resp.Header.Get("X-MBX-USED-WEIGHT-1m"); used != "" {
		if n, err := strconv.ParseInt(used, 10, 64); err == nil {
			t.log.LogMetric(component(t.exchange), "used_weight", n, "gauge", logger.Fields{"exchange": t.exchange.String()})
		}
	}
	return resp, nil
}

func component(exchange models.Exchange) string {
	return strings.ToLower(exchange.String()) + "_rest"
}

// ReportRateLimitExceeded counts a 429 response for exchange.
func ReportRateLimitExceeded(log *logger.Log, exchange models.Exchange, path string) {
	c := component(exchange)
	fields := logger.Fields{"exchange": exchange.String(), "path": path}
	log.LogMetric(c, "rate_limit_exceeded", int64(1), "counter", fields)
	log.WithComponent(c).WithFields(fields).Warn("rate limit exceeded")
}

// ReportIPBan counts a ban response for exchange.
func ReportIPBan(log *logger.Log, exchange models.Exchange, path string) {
	c := component(exchange)
	fields := logger.Fields{"exchange": exchange.String(), "path": path}
	log.LogMetric(c, "ip_ban", int64(1), "counter", fields)
	log.WithComponent(c).WithFields(fields).Error("ip banned")
}
