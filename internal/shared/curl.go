// Utilities for rendering HTTP requests as cURL commands.
package shared

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// FormatCurl renders req as a copy-pastable curl invocation. Headers are
// emitted in sorted order so the output is stable.
func FormatCurl(req *http.Request, body []byte) string {
	var b strings.Builder

	b.WriteString("curl")
	if req.Method != http.MethodGet {
		b.WriteString(fmt.Sprintf(" -X %s", req.Method))
	}

	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, value := range req.Header.Values(key) {
			b.WriteString(fmt.Sprintf(" -H %s", shellQuote(key+": "+value)))
		}
	}

	if len(body) > 0 {
		b.WriteString(fmt.Sprintf(" -d %s", shellQuote(string(body))))
	}

	b.WriteString(" " + shellQuote(req.URL.String()))

	return b.String()
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
