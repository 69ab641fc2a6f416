package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order on text values of date columns.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"02/01/2006 15:04:05",
}

// FormatTimestamp renders t as "DD/MM/YYYY h:MM:SS" with an Arabic
// meridiem marker (ص before noon, م after).
func FormatTimestamp(t time.Time) string {
	hour, meridiem := t.Hour(), "ص"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		meridiem = "م"
	case hour > 12:
		hour -= 12
		meridiem = "م"
	}
	return fmt.Sprintf("%02d/%02d/%d %d:%02d:%02d %s",
		t.Day(), int(t.Month()), t.Year(), hour, t.Minute(), t.Second(), meridiem)
}

// ConvertTimestamp formats a date column value. Numbers are unix seconds
// (UTC); strings are parsed with the known layouts. Values that cannot be
// interpreted are returned as their plain text.
func ConvertTimestamp(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return FormatTimestamp(x)
	case int64:
		return FormatTimestamp(time.Unix(x, 0).UTC())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return cellText(x)
		}
		sec, frac := math.Modf(x)
		return FormatTimestamp(time.Unix(int64(sec), int64(frac*1e9)).UTC())
	case []byte:
		return ConvertTimestamp(string(x))
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return FormatTimestamp(t)
			}
		}
		return x
	default:
		return cellText(v)
	}
}

// cellText renders a database value for TSV output.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "<binary data>"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat prints the shortest representation that round-trips,
// keeping a ".0" on integral values.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
