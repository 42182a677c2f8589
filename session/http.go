package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// HTTPBootstrapper walks the same pages as the browser bootstrapper with a
// plain collector and exports its cookie jar. It cannot pass a JS challenge;
// it exists for environments without a Chrome binary, where the site is
// known to hand out cookies on the first plain request.
type HTTPBootstrapper struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
}

// NewHTTPBootstrapper builds an HTTP-only bootstrapper for baseURL.
func NewHTTPBootstrapper(baseURL, userAgent string, timeout time.Duration) *HTTPBootstrapper {
	return &HTTPBootstrapper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: resolveUserAgent(userAgent),
		timeout:   timeout,
	}
}

// Bootstrap visits the landing and reports pages and harvests the cookies
// the collector accumulated.
func (b *HTTPBootstrapper) Bootstrap(ctx context.Context) (*Session, error) {
	parsed, err := url.Parse(b.baseURL)
	if err != nil {
		return nil, BootstrapError{Err: fmt.Errorf("parse base url: %w", err)}
	}
	if parsed.Host == "" {
		return nil, BootstrapError{Err: fmt.Errorf("base url must include a host")}
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(b.userAgent),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(b.timeout)

	reportsURL := b.baseURL + ReportsPath

	for _, page := range []string{b.baseURL, reportsURL} {
		if err := ctx.Err(); err != nil {
			return nil, BootstrapError{Err: err}
		}
		if err := collector.Visit(page); err != nil {
			return nil, BootstrapError{Err: fmt.Errorf("visit %s: %w", page, err)}
		}
	}

	return &Session{
		Cookies:   collector.Cookies(b.baseURL),
		Headers:   browserHeaders(b.userAgent, reportsURL, b.baseURL),
		UserAgent: b.userAgent,
	}, nil
}
