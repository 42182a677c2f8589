package fetch

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// PayloadKind tags what the data endpoint actually returned. The service
// signals failure by returning a JSON envelope instead of CSV, with no
// distinct status code to rely on.
type PayloadKind int

const (
	// PayloadCSV is the requested tabular data.
	PayloadCSV PayloadKind = iota
	// PayloadRecords is a JSON envelope carrying a non-empty data array,
	// which the service sometimes returns instead of CSV.
	PayloadRecords
	// PayloadServiceError is anything else: an error envelope or an
	// unrecognizable body.
	PayloadServiceError
)

// Payload is the classified response body.
type Payload struct {
	Kind    PayloadKind
	CSV     []byte
	Records []map[string]any
	Message string
}

// Classify decides whether a data-endpoint response is CSV, a JSON record
// envelope, or a service error.
func Classify(contentType, contentDisposition string, body []byte) Payload {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	cd := strings.ToLower(strings.TrimSpace(contentDisposition))
	if strings.HasPrefix(ct, "text/csv") || strings.HasPrefix(cd, "attachment") {
		return Payload{Kind: PayloadCSV, CSV: body}
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		return Payload{Kind: PayloadRecords, Records: envelope.Data}
	}

	return Payload{Kind: PayloadServiceError, Message: truncate(string(body), 500)}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
