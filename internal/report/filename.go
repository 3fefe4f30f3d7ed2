// Package report writes and reads the markdown artifacts produced for each
// answered query: the answer document and the sentiment report.
package report

import (
	"strings"
	"time"
)

const maxStemLen = 50

// illegal filesystem characters stripped from query-derived filenames
const illegalChars = `\/:*?"<>|`

// Sanitize strips illegal filesystem characters from a query string and caps
// the result at 50 characters.
func Sanitize(query string) string {
	var b strings.Builder
	for _, r := range query {
		if strings.ContainsRune(illegalChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if runes := []rune(s); len(runes) > maxStemLen {
		s = string(runes[:maxStemLen])
	}
	return s
}

// Filename derives an artifact filename from a query and a timestamp, with
// the given suffix (e.g. "报道" for sentiment reports) and extension.
func Filename(query string, at time.Time, suffix string) string {
	stem := Sanitize(query)
	if stem == "" {
		stem = "query"
	}
	name := stem
	if suffix != "" {
		name += "_" + suffix
	}
	return name + "_" + at.Format("20060102_150405") + ".md"
}
