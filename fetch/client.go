// Package fetch drives the NSE historical data endpoints over a
// bootstrapped session: expiry discovery, per-expiry download, and the
// year-level orchestration loop.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-nse-data/config"
	"github.com/aluiziolira/go-nse-data/models"
	"github.com/aluiziolira/go-nse-data/output"
	"github.com/aluiziolira/go-nse-data/session"
)

const (
	metaPath = "/api/historicalOR/meta/foCPV/expireDts"
	dataPath = "/api/historicalOR/foCPV"

	expiryCacheSize = 64
)

// Client issues session-authenticated calls against the historical API.
type Client struct {
	cfg     *config.Config
	http    *resty.Client
	metrics *Metrics

	// expiry lists keyed by symbol|instrument|year, so multi-year and
	// multi-instrument runs hit the metadata endpoint once per key.
	expiries *lru.Cache[string, []models.ExpiryDate]
}

// NewClient builds a client from a bootstrapped session. Metrics may be nil.
func NewClient(cfg *config.Config, sess *session.Session, metrics *Metrics) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	jar, err := sess.Jar(base)
	if err != nil {
		return nil, fmt.Errorf("build cookie jar: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeaders(sess.Headers)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	client.SetTimeout(cfg.Timeout)

	cache, err := lru.New[string, []models.ExpiryDate](expiryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build expiry cache: %w", err)
	}

	return &Client{
		cfg:      cfg,
		http:     client,
		metrics:  metrics,
		expiries: cache,
	}, nil
}

// HTTPClient exposes the underlying resty client for transport-level test
// hooks.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

// ListExpiries fetches the expiry dates for (symbol, instrument, year) in
// server order. Results are cached for the life of the process.
func (c *Client) ListExpiries(ctx context.Context, symbol, instrument string, year int) ([]models.ExpiryDate, error) {
	key := symbol + "|" + instrument + "|" + strconv.Itoa(year)
	if cached, ok := c.expiries.Get(key); ok {
		return cached, nil
	}

	// The metadata endpoint answers fast or not at all; it gets a shorter
	// deadline than the data endpoint.
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MetaTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("instrument", instrument)
	params.Set("symbol", symbol)
	params.Set("year", strconv.Itoa(year))
	requestURL := c.cfg.BaseURL + metaPath + "?" + params.Encode()

	c.metrics.IncRequest("meta")
	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(metaPath)
	c.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return nil, FetchError{URL: requestURL, Err: err}
	}
	if res.IsError() {
		return nil, FetchError{URL: requestURL, Err: fmt.Errorf("http status %d", res.StatusCode())}
	}

	raws, err := decodeExpiryList(res.Body())
	if err != nil {
		return nil, FetchError{URL: requestURL, Err: err}
	}

	expiries := make([]models.ExpiryDate, 0, len(raws))
	for _, raw := range raws {
		expiry, err := models.ParseExpiry(raw)
		if err != nil {
			slog.Warn("skipping malformed expiry date",
				slog.String("symbol", symbol),
				slog.String("instrument", instrument),
				slog.Int("year", year),
				slog.String("raw", raw),
				slog.Any("error", err),
			)
			continue
		}
		expiries = append(expiries, expiry)
	}

	c.metrics.AddExpiries(len(expiries))
	c.expiries.Add(key, expiries)
	return expiries, nil
}

// decodeExpiryList accepts the shapes the metadata endpoint has been seen to
// return: a bare JSON string array, or an object keyed by one of expiryDt,
// expiresDts, or expiryDates.
func decodeExpiryList(body []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(body, &keyed); err != nil {
		return nil, fmt.Errorf("unexpected metadata body: %w", err)
	}
	for _, key := range []string{"expiryDt", "expiresDts", "expiryDates"} {
		raw, ok := keyed[key]
		if !ok {
			continue
		}
		var dates []string
		if err := json.Unmarshal(raw, &dates); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return dates, nil
	}
	return nil, fmt.Errorf("metadata body has no expiry date key")
}

// FetchAndSave downloads the data for one target and writes it to its
// deterministic path under the output root. It returns the written path.
// The configured inter-request delay is applied before returning, on
// success and failure alike.
func (c *Client) FetchAndSave(ctx context.Context, target models.DownloadTarget) (string, error) {
	defer c.pause(ctx)

	params := url.Values{}
	params.Set("from", target.Window.FromParam())
	params.Set("to", target.Window.ToParam())
	params.Set("instrumentType", target.Instrument)
	params.Set("symbol", target.Symbol)
	params.Set("year", strconv.Itoa(target.Year))
	params.Set("expiryDate", target.Expiry.Raw)
	params.Set("csv", "true")
	requestURL := c.cfg.BaseURL + dataPath + "?" + params.Encode()

	c.metrics.IncRequest("data")
	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(dataPath)
	c.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		c.metrics.IncDownload("fetch_error")
		return "", FetchError{URL: requestURL, Err: err}
	}
	if res.IsError() {
		c.metrics.IncDownload("fetch_error")
		return "", FetchError{URL: requestURL, Err: fmt.Errorf("http status %d", res.StatusCode())}
	}

	payload := Classify(res.Header().Get("Content-Type"), res.Header().Get("Content-Disposition"), res.Body())

	var data []byte
	var status string
	switch payload.Kind {
	case PayloadCSV:
		data = payload.CSV
		status = "saved"
	case PayloadRecords:
		converted, err := output.RecordsToCSV(payload.Records)
		if err != nil {
			c.metrics.IncDownload("fetch_error")
			return "", FetchError{URL: requestURL, Err: fmt.Errorf("convert records: %w", err)}
		}
		data = converted
		status = "converted"
	default:
		c.metrics.IncDownload("service_error")
		return "", FetchError{URL: requestURL, Err: fmt.Errorf("service error body: %s", payload.Message)}
	}

	dir := target.Dir(c.cfg.OutputRoot)
	if err := output.EnsureDir(dir); err != nil {
		c.metrics.IncDownload("write_error")
		return "", WriteError{Path: dir, Err: err}
	}

	path := target.Path(c.cfg.OutputRoot)
	if err := output.WriteFile(path, data); err != nil {
		c.metrics.IncDownload("write_error")
		return "", WriteError{Path: path, Err: err}
	}

	c.metrics.IncDownload(status)
	return path, nil
}

// ProcessYear runs discovery once and downloads each expiry in server
// order. In test mode only the first expiry is processed. Per-expiry
// failures are logged and counted; the loop continues. Discovery failure is
// the only error returned.
func (c *Client) ProcessYear(ctx context.Context, year int) (models.RunSummary, error) {
	summary := models.RunSummary{Year: year}

	expiries, err := c.ListExpiries(ctx, c.cfg.Symbol, c.cfg.Instrument, year)
	if err != nil {
		return summary, err
	}
	if len(expiries) == 0 {
		return summary, FetchError{
			URL: c.cfg.BaseURL + metaPath,
			Err: fmt.Errorf("no expiry dates for %s %s %d", c.cfg.Symbol, c.cfg.Instrument, year),
		}
	}

	if c.cfg.TestMode {
		slog.Info("test mode: processing first expiry only", slog.String("expiry", expiries[0].Raw))
		expiries = expiries[:1]
	}
	summary.Total = len(expiries)

	for i, expiry := range expiries {
		if err := ctx.Err(); err != nil {
			summary.Failed += len(expiries) - i
			for _, remaining := range expiries[i:] {
				summary.FailedExpiries = append(summary.FailedExpiries, remaining.Raw)
			}
			return summary, nil
		}

		target := models.NewTarget(c.cfg.Symbol, c.cfg.Instrument, expiry)
		slog.Info("processing expiry",
			slog.Int("n", i+1),
			slog.Int("total", len(expiries)),
			slog.String("expiry", expiry.Raw),
			slog.String("from", target.Window.FromParam()),
			slog.String("to", target.Window.ToParam()),
		)

		path, err := c.FetchAndSave(ctx, target)
		if err != nil {
			summary.Failed++
			summary.FailedExpiries = append(summary.FailedExpiries, expiry.Raw)
			c.metrics.IncError(errorLabel(err))
			slog.Error("expiry failed",
				slog.String("symbol", c.cfg.Symbol),
				slog.String("instrument", c.cfg.Instrument),
				slog.Int("year", year),
				slog.String("expiry", expiry.Raw),
				slog.String("category", errorLabel(err)),
				slog.Any("error", err),
			)
			continue
		}

		summary.Succeeded++
		slog.Info("saved", slog.String("path", path))
	}

	return summary, nil
}

// pause blocks for the configured inter-request delay, or until ctx is
// cancelled.
func (c *Client) pause(ctx context.Context) {
	if c.cfg.Delay <= 0 {
		return
	}
	timer := time.NewTimer(c.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
