package entities

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDateRe = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
)

// ExtractDates returns the distinct calendar dates in text as sorted
// ISO-8601 strings. Impossible dates such as 2018-02-30 are dropped.
func ExtractDates(text string) []string {
	seen := make(map[string]bool)
	add := func(layout, value string) {
		t, err := time.Parse(layout, value)
		if err != nil {
			return
		}
		seen[t.Format("2006-01-02")] = true
	}

	for _, m := range isoDateRe.FindAllString(text, -1) {
		add("2006-01-02", m)
	}
	for _, m := range usDateRe.FindAllStringSubmatch(text, -1) {
		add("1/2/2006", m[1]+"/"+m[2]+"/"+m[3])
	}
	for _, m := range monthDateRe.FindAllStringSubmatch(text, -1) {
		month := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:3])
		add("Jan 2 2006", month+" "+m[2]+" "+m[3])
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
