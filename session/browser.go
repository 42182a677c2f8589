package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

const (
	landingWait   = 3 * time.Second
	challengeWait = 5 * time.Second
)

// BrowserBootstrapper drives a real Chrome through the reports page and
// exports the cookies it collects. This is the only path that satisfies the
// site's JS challenge.
type BrowserBootstrapper struct {
	baseURL   string
	userAgent string
	headless  bool
}

// NewBrowserBootstrapper builds a browser bootstrapper for baseURL.
// userAgent may be empty, in which case a random Chrome UA is used.
func NewBrowserBootstrapper(baseURL, userAgent string, headless bool) *BrowserBootstrapper {
	return &BrowserBootstrapper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: resolveUserAgent(userAgent),
		headless:  headless,
	}
}

// Bootstrap launches Chrome, walks the landing and reports pages, waits for
// the challenge scripts, and harvests the resulting cookies. The browser is
// shut down on every path, including failures.
func (b *BrowserBootstrapper) Bootstrap(ctx context.Context) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(b.userAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	reportsURL := b.baseURL + ReportsPath

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(b.baseURL),
		chromedp.Sleep(landingWait),
		chromedp.Navigate(reportsURL),
		chromedp.Sleep(challengeWait),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, BootstrapError{Err: err}
	}

	return &Session{
		Cookies:   convertCookies(cookies),
		Headers:   browserHeaders(b.userAgent, reportsURL, b.baseURL),
		UserAgent: b.userAgent,
	}, nil
}

func convertCookies(cookies []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return out
}
