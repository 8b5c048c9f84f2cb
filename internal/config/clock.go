package config

import "strings"

// qtTokens maps Qt date/time format tokens to Go reference layout elements.
// The hour tokens h and hh are handled separately because their meaning
// depends on whether the format carries an AM/PM marker.
var qtTokens = map[string]string{
	"H":    "15",
	"HH":   "15",
	"m":    "4",
	"mm":   "04",
	"s":    "5",
	"ss":   "05",
	"zzz":  "000",
	"d":    "2",
	"dd":   "02",
	"ddd":  "Mon",
	"dddd": "Monday",
	"M":    "1",
	"MM":   "01",
	"MMM":  "Jan",
	"MMMM": "January",
	"yy":   "06",
	"yyyy": "2006",
}

// ClockLayout turns the clock_format setting into a layout for time.Format.
// Qt style formats ("HH:mm", "h:mm AP", "ddd HH:mm") are translated. Anything
// containing a digit is taken to be a Go layout already ("15:04") and is
// returned unchanged.
//
// Go has no unpadded 24-hour element, so H and a 24-hour h both become "15".
func ClockLayout(format string) string {
	if format == "" || strings.ContainsAny(format, "0123456789") {
		return format
	}

	runes := []rune(format)
	twelveHour := hasMeridiem(runes)

	var b strings.Builder
	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' {
			i = copyQuoted(&b, runes, i)
			continue
		}

		switch {
		case r == 'A' && i+1 < len(runes) && runes[i+1] == 'P':
			b.WriteString("PM")
			i += 2
			continue
		case r == 'a' && i+1 < len(runes) && runes[i+1] == 'p':
			b.WriteString("pm")
			i += 2
			continue
		case r == 'A':
			b.WriteString("PM")
			i++
			continue
		case r == 'a':
			b.WriteString("pm")
			i++
			continue
		}

		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		run := string(runes[i:j])

		switch {
		case run == "h" && twelveHour:
			b.WriteString("3")
		case run == "hh" && twelveHour:
			b.WriteString("03")
		case run == "h" || run == "hh":
			b.WriteString("15")
		default:
			if layout, ok := qtTokens[run]; ok {
				b.WriteString(layout)
			} else {
				b.WriteString(run)
			}
		}
		i = j
	}
	return b.String()
}

// copyQuoted writes the literal text of a quoted section starting at runes[i]
// and returns the index just past it. '' stands for a single quote.
func copyQuoted(b *strings.Builder, runes []rune, i int) int {
	j := i + 1
	if j < len(runes) && runes[j] == '\'' {
		b.WriteRune('\'')
		return j + 1
	}
	for ; j < len(runes); j++ {
		if runes[j] != '\'' {
			b.WriteRune(runes[j])
			continue
		}
		if j+1 < len(runes) && runes[j+1] == '\'' {
			b.WriteRune('\'')
			j++
			continue
		}
		return j + 1
	}
	return j
}

// hasMeridiem reports whether an unquoted A or a appears in the format
func hasMeridiem(runes []rune) bool {
	quoted := false
	for _, r := range runes {
		switch {
		case r == '\'':
			quoted = !quoted
		case !quoted && (r == 'A' || r == 'a'):
			return true
		}
	}
	return false
}
