// Package models defines the value types of a download run.
package models

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ExpiryLayout is the server's expiry date format (28-May-2015).
	ExpiryLayout = "02-Jan-2006"
	// WindowLayout is the format the data endpoint expects for from/to.
	WindowLayout = "02-01-2006"
)

// ExpiryDate is one contract expiry as reported by the metadata endpoint.
// Raw keeps the server string verbatim; it is reused for the expiryDate
// request parameter and for file naming.
type ExpiryDate struct {
	Raw  string
	Time time.Time
}

// ParseExpiry parses a server expiry string. The server uses upper-case
// month abbreviations (28-MAY-2015), which time.Parse rejects, so the month
// token is normalized before parsing.
func ParseExpiry(raw string) (ExpiryDate, error) {
	trimmed := strings.TrimSpace(raw)
	parts := strings.Split(trimmed, "-")
	if len(parts) != 3 {
		return ExpiryDate{}, fmt.Errorf("malformed expiry date %q", raw)
	}

	month := parts[1]
	if len(month) > 1 {
		month = strings.ToUpper(month[:1]) + strings.ToLower(month[1:])
	}

	parsed, err := time.Parse(ExpiryLayout, parts[0]+"-"+month+"-"+parts[2])
	if err != nil {
		return ExpiryDate{}, fmt.Errorf("parse expiry date %q: %w", raw, err)
	}

	return ExpiryDate{Raw: trimmed, Time: parsed}, nil
}

func (e ExpiryDate) String() string {
	return e.Raw
}

// Year returns the calendar year of the expiry, which determines the output
// directory.
func (e ExpiryDate) Year() int {
	return e.Time.Year()
}

// DateWindow is the from/to range submitted to the data endpoint.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// ComputeWindow derives the request window from an expiry: 60 calendar days
// before to 1 calendar day after.
func ComputeWindow(expiry time.Time) DateWindow {
	return DateWindow{
		Start: expiry.AddDate(0, 0, -60),
		End:   expiry.AddDate(0, 0, 1),
	}
}

// FromParam formats the window start for the API.
func (w DateWindow) FromParam() string {
	return w.Start.Format(WindowLayout)
}

// ToParam formats the window end for the API.
func (w DateWindow) ToParam() string {
	return w.End.Format(WindowLayout)
}

// DownloadTarget fully determines one data request and its output path.
type DownloadTarget struct {
	Symbol     string
	Instrument string
	Year       int
	Expiry     ExpiryDate
	Window     DateWindow
}

// NewTarget builds the target for one expiry. The year comes from the expiry
// itself: a contract listed in one year may expire in the next.
func NewTarget(symbol, instrument string, expiry ExpiryDate) DownloadTarget {
	return DownloadTarget{
		Symbol:     symbol,
		Instrument: instrument,
		Year:       expiry.Year(),
		Expiry:     expiry,
		Window:     ComputeWindow(expiry.Time),
	}
}

// Dir returns the output directory: <root>/<year>/<symbol>/<instrument>.
func (t DownloadTarget) Dir(root string) string {
	return filepath.Join(root, strconv.Itoa(t.Year), t.Symbol, t.Instrument)
}

// FileName returns the deterministic output file name, with dashes in the
// date components replaced by underscores.
func (t DownloadTarget) FileName() string {
	return fmt.Sprintf("%s_%s_%s_%s_to_%s.csv",
		t.Symbol,
		t.Instrument,
		underscored(t.Expiry.Raw),
		underscored(t.Window.FromParam()),
		underscored(t.Window.ToParam()),
	)
}

// Path returns the full output file path under root.
func (t DownloadTarget) Path(root string) string {
	return filepath.Join(t.Dir(root), t.FileName())
}

func underscored(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

// RunSummary reports the outcome of processing one year.
type RunSummary struct {
	Year           int
	Total          int
	Succeeded      int
	Failed         int
	FailedExpiries []string
}
