package session

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
)

func TestResolveUserAgent(t *testing.T) {
	if got := resolveUserAgent("custom-agent"); got != "custom-agent" {
		t.Fatalf("configured UA not passed through, got %q", got)
	}
	if got := resolveUserAgent(""); got == "" {
		t.Fatalf("empty configuration should yield a random UA")
	}
}

func TestBrowserHeaders(t *testing.T) {
	headers := browserHeaders("agent", "https://www.nseindia.com/report-detail/fo_eq_security", "https://www.nseindia.com")

	if headers["User-Agent"] != "agent" {
		t.Fatalf("User-Agent = %q", headers["User-Agent"])
	}
	if headers["Referer"] != "https://www.nseindia.com/report-detail/fo_eq_security" {
		t.Fatalf("Referer = %q", headers["Referer"])
	}
	if headers["Origin"] != "https://www.nseindia.com" {
		t.Fatalf("Origin = %q", headers["Origin"])
	}
	if headers["Sec-Fetch-Site"] != "same-origin" {
		t.Fatalf("Sec-Fetch-Site = %q", headers["Sec-Fetch-Site"])
	}
	if _, ok := headers["Accept-Encoding"]; ok {
		t.Fatalf("Accept-Encoding must stay with the transport")
	}
}

func TestClientHintsMatchUserAgent(t *testing.T) {
	tests := []struct {
		name         string
		ua           string
		wantSecChUa  string
		wantPlatform string
	}{
		{
			name:         "windows chrome",
			ua:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			wantSecChUa:  `"Google Chrome";v="123", "Chromium";v="123", "Not/A)Brand";v="24"`,
			wantPlatform: `"Windows"`,
		},
		{
			name:         "mac chrome",
			ua:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
			wantSecChUa:  `"Google Chrome";v="137", "Chromium";v="137", "Not/A)Brand";v="24"`,
			wantPlatform: `"macOS"`,
		},
		{
			name:         "linux chrome",
			ua:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			wantSecChUa:  `"Google Chrome";v="118", "Chromium";v="118", "Not/A)Brand";v="24"`,
			wantPlatform: `"Linux"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := browserHeaders(tt.ua, "https://www.nseindia.com/report-detail/fo_eq_security", "https://www.nseindia.com")
			if headers["Sec-Ch-Ua"] != tt.wantSecChUa {
				t.Fatalf("Sec-Ch-Ua = %q, want %q", headers["Sec-Ch-Ua"], tt.wantSecChUa)
			}
			if headers["Sec-Ch-Ua-Platform"] != tt.wantPlatform {
				t.Fatalf("Sec-Ch-Ua-Platform = %q, want %q", headers["Sec-Ch-Ua-Platform"], tt.wantPlatform)
			}
		})
	}
}

func TestClientHintsForRandomUserAgent(t *testing.T) {
	// The default session UA is random; whatever it is, the hints must
	// agree with it.
	ua := resolveUserAgent("")
	headers := browserHeaders(ua, "https://www.nseindia.com", "https://www.nseindia.com")

	if groups := chromeVersionRegex.FindStringSubmatch(ua); groups != nil {
		want := `"Google Chrome";v="` + groups[1] + `"`
		if !strings.HasPrefix(headers["Sec-Ch-Ua"], want) {
			t.Fatalf("Sec-Ch-Ua %q does not match UA version %q", headers["Sec-Ch-Ua"], groups[1])
		}
	}
	if strings.Contains(ua, "Windows") && headers["Sec-Ch-Ua-Platform"] != `"Windows"` {
		t.Fatalf("platform hint %q contradicts Windows UA", headers["Sec-Ch-Ua-Platform"])
	}
	if strings.Contains(ua, "Macintosh") && headers["Sec-Ch-Ua-Platform"] != `"macOS"` {
		t.Fatalf("platform hint %q contradicts macOS UA", headers["Sec-Ch-Ua-Platform"])
	}
}

func TestSessionJar(t *testing.T) {
	base, err := url.Parse("https://www.nseindia.com")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	sess := &Session{
		Cookies: []*http.Cookie{
			{Name: "nsit", Value: "abc"},
			{Name: "bm_sv", Value: "def"},
		},
	}

	jar, err := sess.Jar(base)
	if err != nil {
		t.Fatalf("Jar: %v", err)
	}

	got := jar.Cookies(base)
	if len(got) != 2 {
		t.Fatalf("jar holds %d cookies, want 2", len(got))
	}
	byName := make(map[string]string, len(got))
	for _, cookie := range got {
		byName[cookie.Name] = cookie.Value
	}
	if byName["nsit"] != "abc" || byName["bm_sv"] != "def" {
		t.Fatalf("unexpected jar cookies %v", byName)
	}
}

func TestConvertCookies(t *testing.T) {
	cookies := convertCookies([]*network.Cookie{
		{Name: "nseappid", Value: "token", Domain: ".nseindia.com", Path: "/"},
	})

	if len(cookies) != 1 {
		t.Fatalf("len = %d, want 1", len(cookies))
	}
	if cookies[0].Name != "nseappid" || cookies[0].Value != "token" {
		t.Fatalf("unexpected cookie %+v", cookies[0])
	}
	if cookies[0].Domain != ".nseindia.com" || cookies[0].Path != "/" {
		t.Fatalf("domain/path not carried over: %+v", cookies[0])
	}
}
