package listing

import (
	"strings"
	"time"
	"unicode"
)

const (
	labelToday     = "Today"
	labelYesterday = "Yesterday"
)

// NormalizeDateLabel turns a relative publication-date label into an absolute
// one formatted with layout. "Today" and labels starting with a digit (such
// as "5 hours ago" or a bare time) resolve to now's date, "Yesterday" to the
// day before, and a bare weekday name to the most recent such day on or
// before now. Other labels are returned unchanged.
func NormalizeDateLabel(label string, now time.Time, layout string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return label
	}

	switch {
	case strings.HasPrefix(label, labelToday), unicode.IsDigit(rune(label[0])):
		return now.Format(layout)
	case strings.HasPrefix(label, labelYesterday):
		return now.AddDate(0, 0, -1).Format(layout)
	}

	if wd, ok := parseWeekday(label); ok {
		back := (int(now.Weekday()) - int(wd) + 7) % 7
		return now.AddDate(0, 0, -back).Format(layout)
	}

	return label
}

// ParseDateLabel normalizes label against now and parses it in now's
// location. The result is midnight of the label's day.
func ParseDateLabel(label string, now time.Time, layout string) (time.Time, error) {
	return time.ParseInLocation(layout, NormalizeDateLabel(label, now, layout), now.Location())
}

func parseWeekday(label string) (time.Weekday, bool) {
	word := strings.Fields(label)[0]
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(word, wd.String()) {
			return wd, true
		}
	}
	return 0, false
}
