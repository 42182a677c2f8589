// Package session establishes a browser-derived NSE session: anti-bot
// cookies plus a header set matching the browser that earned them.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	browser "github.com/EDDYCJY/fake-useragent"
)

// ReportsPath is the human-facing reports page that hands out the cookies
// the historical API checks for.
const ReportsPath = "/report-detail/fo_eq_security"

// Session is the harvested state reused by all plain HTTP calls. It is
// read-only after bootstrap.
type Session struct {
	Cookies   []*http.Cookie
	Headers   map[string]string
	UserAgent string
}

// Bootstrapper acquires a session.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) (*Session, error)
}

// BootstrapError marks a failed bootstrap. It is fatal: the run aborts
// rather than retrying.
type BootstrapError struct {
	Err error
}

func (e BootstrapError) Error() string {
	return fmt.Errorf("session bootstrap: %w", e.Err).Error()
}

func (e BootstrapError) Unwrap() error {
	return e.Err
}

// Jar copies the session cookies into a cookie jar scoped to base.
func (s *Session) Jar(base *url.URL) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(base, s.Cookies)
	return jar, nil
}

// resolveUserAgent returns the configured UA, or a random Chrome one.
func resolveUserAgent(configured string) string {
	if configured != "" {
		return configured
	}
	return browser.Chrome()
}

// browserHeaders mimics the request headers Chrome sends from the reports
// page. The client hints are derived from ua so they never contradict it.
// Accept-Encoding is left to the transport so gzip decoding stays
// automatic.
func browserHeaders(ua, referer, origin string) map[string]string {
	return map[string]string{
		"User-Agent":         ua,
		"Accept":             "*/*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Cache-Control":      "no-cache",
		"Pragma":             "no-cache",
		"Sec-Ch-Ua":          secChUa(ua),
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": secChUaPlatform(ua),
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-origin",
		"Referer":            referer,
		"Origin":             origin,
	}
}

var chromeVersionRegex = regexp.MustCompile(`Chrome/(\d+)`)

// secChUa builds the brand list for the Chrome major version the UA
// reports.
func secChUa(ua string) string {
	version := "137"
	if groups := chromeVersionRegex.FindStringSubmatch(ua); groups != nil {
		version = groups[1]
	}
	return fmt.Sprintf(`"Google Chrome";v="%s", "Chromium";v="%s", "Not/A)Brand";v="24"`, version, version)
}

// secChUaPlatform maps the UA's OS token to the platform hint value.
func secChUaPlatform(ua string) string {
	switch {
	case strings.Contains(ua, "Macintosh"):
		return `"macOS"`
	case strings.Contains(ua, "Windows"):
		return `"Windows"`
	default:
		return `"Linux"`
	}
}
