package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-nse-data/config"
	"github.com/aluiziolira/go-nse-data/fetch"
	"github.com/aluiziolira/go-nse-data/models"
	"github.com/aluiziolira/go-nse-data/session"
)

func main() {
	defaultCfg := config.DefaultConfig()
	symbolDefault := defaultCfg.Symbol
	if value, ok := config.EnvString("NSE_SYMBOL"); ok {
		symbolDefault = value
	}
	instrumentDefault := defaultCfg.Instrument
	if value, ok := config.EnvString("NSE_INSTRUMENT"); ok {
		instrumentDefault = value
	}
	outputDefault := defaultCfg.OutputRoot
	if value, ok := config.EnvString("NSE_OUTPUT"); ok {
		outputDefault = value
	}
	delayDefault := int(defaultCfg.Delay / time.Second)
	if value, ok, err := config.EnvInt("NSE_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid NSE_DELAY: %v\n", err)
		os.Exit(1)
	} else if ok {
		delayDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("NSE_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	symbol := flag.String("symbol", symbolDefault, "Symbol to download (e.g. NIFTY)")
	instrument := flag.String("instrument", instrumentDefault, "Instrument type (e.g. FUTIDX, OPTIDX)")
	years := flag.String("years", "", "Year, comma list, or range (2015 | 2015,2017 | 2015-2017); prompts when empty")
	testMode := flag.Bool("test", false, "Process only the first expiry of each year")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the bootstrap browser headless")
	bootstrapMode := flag.String("bootstrap", defaultCfg.Bootstrap, "Session bootstrap mode: browser or http")
	delaySec := flag.Int("delay", delayDefault, "Delay between requests (seconds)")
	outputRoot := flag.String("output", outputDefault, "Output root directory")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "NSE base URL")
	userAgent := flag.String("user-agent", "", "User agent override (random Chrome UA when empty)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	yearList, err := parseYears(*years)
	if err != nil {
		slog.Error("invalid -years", slog.Any("error", err))
		os.Exit(1)
	}
	if len(yearList) == 0 {
		// One scanner for both prompts: a second scanner over the same
		// file would lose input the first one buffered.
		stdin := bufio.NewScanner(os.Stdin)
		year, err := promptYear(stdin)
		if err != nil {
			slog.Error("reading year", slog.Any("error", err))
			os.Exit(1)
		}
		yearList = []int{year}
		if !*testMode {
			*testMode = promptTestMode(stdin)
		}
	}

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.Symbol = strings.ToUpper(*symbol)
	cfg.Instrument = strings.ToUpper(*instrument)
	cfg.Years = yearList
	cfg.TestMode = *testMode
	cfg.Headless = *headless
	cfg.Bootstrap = *bootstrapMode
	cfg.Delay = time.Duration(*delaySec) * time.Second
	cfg.OutputRoot = *outputRoot
	cfg.UserAgent = *userAgent
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting download",
		slog.String("symbol", cfg.Symbol),
		slog.String("instrument", cfg.Instrument),
		slog.Any("years", cfg.Years),
		slog.Bool("test_mode", cfg.TestMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := fetch.NewMetrics()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	var bootstrapper session.Bootstrapper
	switch cfg.Bootstrap {
	case config.BootstrapHTTP:
		bootstrapper = session.NewHTTPBootstrapper(cfg.BaseURL, cfg.UserAgent, cfg.Timeout)
	default:
		bootstrapper = session.NewBrowserBootstrapper(cfg.BaseURL, cfg.UserAgent, cfg.Headless)
	}

	slog.Info("bootstrapping session", slog.String("mode", cfg.Bootstrap))
	sess, err := bootstrapper.Bootstrap(ctx)
	if err != nil {
		slog.Error("session bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("session established", slog.Int("cookies", len(sess.Cookies)))

	client, err := fetch.NewClient(cfg, sess, metrics)
	if err != nil {
		slog.Error("initialising client", slog.Any("error", err))
		os.Exit(1)
	}

	startTime := time.Now()
	var summaries []models.RunSummary
	for _, year := range cfg.Years {
		if ctx.Err() != nil {
			slog.Info("shutdown requested, stopping before next year")
			break
		}
		summary, err := client.ProcessYear(ctx, year)
		if err != nil {
			slog.Error("year failed",
				slog.Int("year", year),
				slog.String("symbol", cfg.Symbol),
				slog.String("instrument", cfg.Instrument),
				slog.Any("error", err),
			)
		}
		summaries = append(summaries, summary)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	succeeded := printSummary(summaries, time.Since(startTime), cfg)
	if succeeded == 0 {
		os.Exit(1)
	}
}

// parseYears accepts "2015", "2015,2017", or "2015-2017".
func parseYears(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if from, to, ok := strings.Cut(raw, "-"); ok {
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("parse year range start %q: %w", from, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil {
			return nil, fmt.Errorf("parse year range end %q: %w", to, err)
		}
		if end < start {
			return nil, fmt.Errorf("year range %q is reversed", raw)
		}
		years := make([]int, 0, end-start+1)
		for year := start; year <= end; year++ {
			years = append(years, year)
		}
		return years, nil
	}

	var years []int
	for _, part := range strings.Split(raw, ",") {
		year, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse year %q: %w", part, err)
		}
		years = append(years, year)
	}
	return years, nil
}

func promptYear(scanner *bufio.Scanner) (int, error) {
	currentYear := time.Now().Year()
	for {
		fmt.Printf("Enter the year (e.g. 2015): ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("no year provided")
		}
		year, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || year < 2000 || year > currentYear {
			fmt.Printf("Please enter a valid year between 2000 and %d\n", currentYear)
			continue
		}
		return year, nil
	}
}

func promptTestMode(scanner *bufio.Scanner) bool {
	fmt.Printf("Test with single expiry first? (y/n): ")
	if !scanner.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(scanner.Text()), "y")
}

func printSummary(summaries []models.RunSummary, duration time.Duration, cfg *config.Config) int {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Download complete")

	succeeded := 0
	failed := 0
	for _, summary := range summaries {
		succeeded += summary.Succeeded
		failed += summary.Failed
		fmt.Printf("  Year %d:       %d/%d expiries\n", summary.Year, summary.Succeeded, summary.Total)
		for _, expiry := range summary.FailedExpiries {
			fmt.Printf("    failed:      %s\n", expiry)
		}
	}
	fmt.Printf("  Succeeded:     %d\n", succeeded)
	fmt.Printf("  Failed:        %d\n", failed)
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output root:   %s\n", cfg.OutputRoot)
	fmt.Println(separator)
	return succeeded
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
