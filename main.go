package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"tradescanner/analytics"
	"tradescanner/config"
	"tradescanner/logger"
	"tradescanner/models"
	"tradescanner/reader"
	"tradescanner/reader/exchanges"
	"tradescanner/scanner"
	"tradescanner/writer"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

type options struct {
	configPath      string
	exchanges       string
	minVolume       string
	minPrice        string
	output          string
	format          string
	logLevel        string
	noCache         bool
	interval        time.Duration
	analyze         string
	analyzeExchange string
	top             int
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&o.exchanges, "exchanges", "", "Comma separated exchanges to scan")
	flag.StringVar(&o.minVolume, "min-volume", "", "Minimum 24h volume")
	flag.StringVar(&o.minPrice, "min-price", "", "Minimum price")
	flag.StringVar(&o.output, "output", "", "Output file path (default: out/results.<format>)")
	flag.StringVar(&o.format, "format", "json", "Export format: json or csv")
	flag.StringVar(&o.logLevel, "log-level", "", "DEBUG, INFO, WARNING, ERROR or CRITICAL")
	flag.BoolVar(&o.noCache, "no-cache", false, "Disable the result cache")
	flag.DurationVar(&o.interval, "interval", 0, "Repeat scans at this interval until interrupted")
	flag.StringVar(&o.analyze, "analyze", "", "Comma separated symbols for session/fibonacci analysis")
	flag.StringVar(&o.analyzeExchange, "analyze-exchange", "binance", "Exchange used for analysis candles")
	flag.IntVar(&o.top, "top", 0, "Log the top N pairs by 24h volume")
	flag.Parse()
	return o
}

func (o options) overrides() (config.Overrides, error) {
	ov := config.Overrides{
		Exchanges: config.SplitList(o.exchanges),
		LogLevel:  o.logLevel,
		NoCache:   o.noCache,
	}
	parse := func(name, v string) (*float64, error) {
		if v == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &config.ConfigurationError{Field: name, Reason: fmt.Sprintf("'%s' is not a number", v)}
		}
		return &f, nil
	}
	var err error
	if ov.MinVolume, err = parse("min_volume", o.minVolume); err != nil {
		return ov, err
	}
	if ov.MinPrice, err = parse("min_price", o.minPrice); err != nil {
		return ov, err
	}
	return ov, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.New()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	opts := parseFlags()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return exitError
	}
	ov, err := opts.overrides()
	if err != nil {
		log.WithError(err).Error("Invalid command line value")
		return exitError
	}
	if cfg, err = cfg.WithOverrides(ov); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return exitError
	}

	output := cfg.Logging.Output
	if cfg.LogFile != "" {
		output = cfg.LogFile
	}
	if err := log.Configure(cfg.LogLevel, cfg.Logging.Format, output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return exitError
	}

	format, err := writer.ParseFormat(opts.format)
	if err != nil {
		log.WithError(err).Error("Invalid export format")
		return exitError
	}
	if opts.output == "" {
		opts.output = filepath.Join(cfg.OutputDir, "results."+format.Extension())
	}

	log.WithEnv("APP_ENV").WithFields(logger.Fields{
		"exchanges":  cfg.EnabledExchanges,
		"min_volume": cfg.MinVolume,
		"min_price":  cfg.MinPrice,
		"output":     opts.output,
		"format":     string(format),
	}).Info("starting tradescanner")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cw := cfg.Metrics.CloudWatch; cw.Enabled {
		if err := log.EnableCloudWatch(ctx, cw.Region, cw.Namespace); err != nil {
			log.WithError(err).Warn("CloudWatch metrics disabled")
		} else if cw.Dashboard != "" {
			if err := log.EnsureDashboard(ctx, cw.Dashboard); err != nil {
				log.WithError(err).Warn("failed to publish CloudWatch dashboard")
			}
		}
	}

	var uploader *writer.S3Uploader
	if cfg.Storage.S3.Enabled {
		if uploader, err = writer.NewS3Uploader(ctx, cfg.Storage.S3, log); err != nil {
			log.WithError(err).Error("failed to create S3 uploader")
			return exitError
		}
	}

	registry := exchanges.NewRegistry(cfg, log)
	app := &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		scanner:  scanner.New(cfg, registry, log),
		uploader: uploader,
		format:   format,
		output:   opts.output,
		top:      opts.top,
	}

	err = app.scanLoop(ctx, opts.interval)
	if err == nil && opts.analyze != "" {
		err = app.analyze(ctx, opts.analyze, opts.analyzeExchange)
	}

	log.LogReport()
	switch {
	case err == nil:
		log.WithComponent("main").Info("tradescanner finished")
		return exitOK
	case ctx.Err() != nil:
		log.WithComponent("main").Warn("interrupted")
		return exitInterrupted
	default:
		log.WithError(err).Error("tradescanner failed")
		return exitError
	}
}

type app struct {
	cfg      *config.Config
	log      *logger.Log
	registry *reader.Registry
	scanner  *scanner.Scanner
	uploader *writer.S3Uploader
	format   writer.Format
	output   string
	top      int
}

// scanLoop runs one round, or repeats rounds every interval until ctx ends.
func (a *app) scanLoop(ctx context.Context, interval time.Duration) error {
	if err := a.round(ctx); err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.round(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *app) round(ctx context.Context) error {
	log := a.log.WithComponent("main")

	snap, err := a.scanner.ScanAll(ctx)
	if err != nil {
		return err
	}

	text, err := writer.Export(snap, a.format)
	if err != nil {
		return err
	}
	if err := writer.WriteFile(a.output, text); err != nil {
		return err
	}
	log.WithFields(logger.Fields{"path": a.output, "pairs": len(snap.Pairs())}).Info("results exported")

	if a.uploader != nil {
		key := a.uploader.ObjectKey(snap.Timestamp, uuid.New().String(), a.format)
		uri, err := a.uploader.Upload(ctx, key, []byte(text), a.format.ContentType())
		if err != nil {
			log.WithError(err).Warn("snapshot upload failed")
		} else {
			log.WithField("uri", uri).Info("snapshot uploaded")
		}
	}

	stats := a.scanner.Statistics()
	log.WithFields(logger.Fields{
		"exchanges_scanned": stats.ExchangesScanned,
		"total_pairs":       stats.TotalPairs,
		"pairs_by_exchange": stats.PairsByExchange,
		"avg_volume":        stats.AverageVolume24h,
		"avg_price":         stats.AveragePrice,
	}).Info("scan statistics")

	for _, r := range snap.Results {
		if !r.Success {
			log.WithFields(logger.Fields{"exchange": r.Exchange.String(), "error": r.Error}).Warn("exchange scan failed")
		}
	}

	if a.top > 0 {
		for i, p := range a.scanner.TopPairsByVolume(a.top) {
			log.WithFields(logger.Fields{
				"rank":       i + 1,
				"symbol":     p.Symbol,
				"exchange":   p.Exchange.String(),
				"price":      p.Price,
				"volume_24h": p.Volume24h,
			}).Info("top pair")
		}
	}
	return nil
}

// analyze writes a session/fibonacci report for each symbol next to the
// scan output. A symbol that cannot be analysed is logged and skipped.
func (a *app) analyze(ctx context.Context, symbols, exchange string) error {
	ex, err := models.ParseExchange(exchange)
	if err != nil {
		return &config.ConfigurationError{Field: "analyze-exchange", Reason: err.Error()}
	}
	adapter, err := a.registry.Get(ex)
	if err != nil {
		return err
	}

	log := a.log.WithComponent("main").WithFields(logger.Fields{"exchange": ex.String()})
	analyzer := analytics.NewAnalyzer(adapter, a.cfg.PageDelay(), analytics.OptionsFrom(a.cfg.Analytics), a.log)

	var reports []analytics.Report
	for _, symbol := range config.SplitList(symbols) {
		r, err := analyzer.Analyze(ctx, symbol, time.Now())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithFields(logger.Fields{"symbol": symbol}).WithError(err).Warn("analysis failed")
			continue
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		return errors.New("no symbol could be analysed")
	}

	text, err := writer.ExportReports(reports, a.format)
	if err != nil {
		return err
	}
	path := filepath.Join(filepath.Dir(a.output), "analytics."+a.format.Extension())
	if err := writer.WriteFile(path, text); err != nil {
		return err
	}
	log.WithFields(logger.Fields{"path": path, "reports": len(reports)}).Info("analytics exported")
	return nil
}
