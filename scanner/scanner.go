// Package scanner runs concurrent per-exchange scans and caches the result
// set of the latest round.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradescanner/config"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/processor"
	"tradescanner/reader"
)

// ErrMissingCredentials marks an exchange skipped for lack of API keys.
var ErrMissingCredentials = errors.New("missing credentials")

// Option customises a Scanner.
type Option func(*Scanner)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// Scanner owns the result cache. The cache is replaced as a unit after every
// completed round and never modified in place.
type Scanner struct {
	cfg        *config.Config
	registry   *reader.Registry
	normalizer *processor.Normalizer
	log        *logger.Log
	now        func() time.Time

	mu      sync.RWMutex
	results []models.ScanResult
	updated time.Time
}

// New returns a Scanner over the adapters in registry.
func New(cfg *config.Config, registry *reader.Registry, log *logger.Log, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:        cfg,
		registry:   registry,
		normalizer: processor.NewNormalizer(cfg.RequestDelay(), log),
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	log.WithComponent("scanner").WithFields(logger.Fields{
		"exchanges":      cfg.EnabledExchanges,
		"cache_duration": cfg.CacheDuration,
	}).Info("scanner initialized")
	return s
}

// ScanAll returns the cached snapshot while it is younger than the cache
// duration. Otherwise it scans every enabled exchange in parallel, waits for
// all of them and replaces the cache. A failing exchange yields a failed
// ScanResult and never affects the others. If ctx is canceled before the
// round completes the partial results are discarded and ctx.Err() returned.
func (s *Scanner) ScanAll(ctx context.Context) (models.Snapshot, error) {
	if snap, ok := s.cached(s.now()); ok {
		s.log.WithComponent("scanner").WithField("timestamp", snap.Timestamp).Debug("serving cached results")
		return snap, nil
	}

	scanID := uuid.New().String()
	log := s.log.WithComponent("scanner").WithFields(logger.Fields{"scan_id": scanID})
	exchanges := s.cfg.Exchanges()
	log.WithFields(logger.Fields{"exchanges": len(exchanges)}).Info("starting scan")

	start := time.Now()
	results := make([]models.ScanResult, len(exchanges))
	var wg sync.WaitGroup
	for i, ex := range exchanges {
		wg.Add(1)
		go func(i int, ex models.Exchange) {
			defer wg.Done()
			results[i] = s.scan(ctx, ex, scanID)
		}(i, ex)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.WithError(err).Warn("scan interrupted, discarding partial results")
		return models.Snapshot{}, err
	}

	finished := s.now()
	s.mu.Lock()
	s.results = results
	s.updated = finished
	s.mu.Unlock()

	failed := 0
	total := 0
	for _, r := range results {
		total += len(r.Pairs)
		if !r.Success {
			failed++
		}
	}
	logger.LogPerformanceEntry(log, "scanner", "scan_all", time.Since(start), logger.Fields{
		"scan_id":  scanID,
		"pairs":    total,
		"failures": failed,
	})
	log.WithFields(logger.Fields{"pairs": total, "failures": failed}).Info("scan complete")

	return s.snapshot(results, finished), nil
}

// ScanExchange scans one enabled exchange, bypassing and leaving untouched
// the cache.
func (s *Scanner) ScanExchange(ctx context.Context, ex models.Exchange) (models.ScanResult, error) {
	if !s.cfg.Enabled(ex) {
		return models.ScanResult{}, &config.ConfigurationError{Field: "exchange", Reason: fmt.Sprintf("'%s' is not enabled", ex)}
	}
	if _, err := s.registry.Get(ex); err != nil {
		return models.ScanResult{}, &config.ConfigurationError{Field: "exchange", Reason: err.Error()}
	}
	r := s.scan(ctx, ex, uuid.New().String())
	if err := ctx.Err(); err != nil {
		return models.ScanResult{}, err
	}
	return r, nil
}

func (s *Scanner) scan(ctx context.Context, ex models.Exchange, scanID string) (result models.ScanResult) {
	start := time.Now()
	log := s.log.WithComponent("scanner").WithFields(logger.Fields{
		"scan_id":  scanID,
		"exchange": ex.String(),
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logger.Fields{"panic": fmt.Sprint(r)}).Error("exchange scan panicked")
			result = models.Failed(ex, fmt.Errorf("panic: %v", r), time.Since(start), s.now())
		}
	}()

	a, err := s.registry.Get(ex)
	if err != nil {
		log.WithError(err).Error("no adapter for exchange")
		return models.Failed(ex, err, time.Since(start), s.now())
	}
	if a.RequiresCredentials() {
		if _, _, ok := s.cfg.Credentials(ex); !ok {
			log.Warn("skipping exchange without credentials")
			return models.Failed(ex, ErrMissingCredentials, time.Since(start), s.now())
		}
	}

	pairs, err := s.normalizer.Pairs(ctx, a, s.now())
	if err != nil {
		log.WithError(err).Error("exchange scan failed")
		return models.Failed(ex, err, time.Since(start), s.now())
	}
	pairs = processor.Filter(pairs, s.cfg.MinVolume, s.cfg.MinPrice, s.log)

	duration := time.Since(start)
	fields := logger.Fields{"exchange": ex.String()}
	log.LogMetric("scanner", "pairs_found", len(pairs), "gauge", fields)
	log.LogMetric("scanner", "scan_duration_ms", duration.Milliseconds(), "gauge", fields)
	log.WithFields(logger.Fields{"pairs": len(pairs), "duration_ms": duration.Milliseconds()}).Info("exchange scanned")

	return models.ScanResult{
		Exchange:  ex,
		Pairs:     pairs,
		Duration:  duration,
		Success:   true,
		Timestamp: s.now(),
	}
}

func (s *Scanner) cached(now time.Time) (models.Snapshot, bool) {
	ttl := s.cfg.CacheTTL()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ttl <= 0 || s.updated.IsZero() || now.Sub(s.updated) >= ttl {
		return models.Snapshot{}, false
	}
	return s.snapshot(s.results, s.updated), true
}

// snapshot copies results down to the pair slices so callers never share
// memory with the cache.
func (s *Scanner) snapshot(results []models.ScanResult, at time.Time) models.Snapshot {
	out := make([]models.ScanResult, len(results))
	copy(out, results)
	for i := range out {
		if out[i].Pairs != nil {
			pairs := make([]models.TradingPair, len(out[i].Pairs))
			copy(pairs, out[i].Pairs)
			out[i].Pairs = pairs
		}
	}
	return models.Snapshot{Timestamp: at, Results: out}
}

// Snapshot returns the cached result set regardless of age. Its Timestamp is
// zero before the first completed round.
func (s *Scanner) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(s.results, s.updated)
}

// PairBySymbol looks symbol up in the cached results, on every exchange when
// ex is empty. Exact matches win over canonical ones.
func (s *Scanner) PairBySymbol(symbol string, ex models.Exchange) (models.TradingPair, bool) {
	snap := s.Snapshot()
	var candidates []models.TradingPair
	for _, r := range snap.Results {
		if ex != "" && r.Exchange != ex {
			continue
		}
		candidates = append(candidates, r.Pairs...)
	}

	for _, p := range candidates {
		if p.Symbol == symbol {
			return p, true
		}
	}
	want := models.CanonicalSymbol("", symbol)
	for _, p := range candidates {
		if models.CanonicalSymbol(p.Exchange, p.Symbol) == want {
			return p, true
		}
	}
	return models.TradingPair{}, false
}

// TopPairsByVolume returns up to limit cached pairs by descending 24h volume.
func (s *Scanner) TopPairsByVolume(limit int) []models.TradingPair {
	pairs := s.Snapshot().Pairs()
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Volume24h > pairs[j].Volume24h
	})
	if limit >= 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Statistics summarises the cached results.
func (s *Scanner) Statistics() models.Statistics {
	snap := s.Snapshot()
	stats := models.Statistics{PairsByExchange: make(map[models.Exchange]int)}
	if !snap.Timestamp.IsZero() {
		ts := snap.Timestamp
		stats.LastUpdated = &ts
	}

	var volume, price float64
	for _, r := range snap.Results {
		if r.Success {
			stats.ExchangesScanned++
		}
		stats.PairsByExchange[r.Exchange] = len(r.Pairs)
		for _, p := range r.Pairs {
			volume += p.Volume24h
			price += p.Price
		}
		stats.TotalPairs += len(r.Pairs)
	}
	if stats.TotalPairs > 0 {
		stats.AverageVolume24h = volume / float64(stats.TotalPairs)
		stats.AveragePrice = price / float64(stats.TotalPairs)
	}
	return stats
}
