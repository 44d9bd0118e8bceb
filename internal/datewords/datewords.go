// Package datewords spells out dates of birth the way they are printed on
// transfer certificates: "31 DECEMBER ONE THOUSAND NINE HUNDRED NINETY NINE".
package datewords

import (
	"strings"
	"time"
)

// InvalidDate is returned by ToWords for any input it cannot parse.
// It is a displayable value, not an error.
const InvalidDate = "Invalid Date"

// Layout is the accepted input form, dd-MM-yyyy. Single-digit day and month
// are accepted.
const Layout = "2-1-2006"

var (
	ones  = [10]string{"", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE"}
	teens = [10]string{"TEN", "ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN", "SIXTEEN", "SEVENTEEN", "EIGHTEEN", "NINETEEN"}
	tens  = [10]string{"", "", "TWENTY", "THIRTY", "FORTY", "FIFTY", "SIXTY", "SEVENTY", "EIGHTY", "NINETY"}
)

// Parse parses a dd-MM-yyyy date. The year must have four digits.
func Parse(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	parts := strings.Split(text, "-")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, false
	}
	t, err := time.Parse(Layout, text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ToWords converts a dd-MM-yyyy date to "<DD> <MONTH> <YEAR IN WORDS>".
// Unparsable input yields InvalidDate.
func ToWords(text string) string {
	t, ok := Parse(text)
	if !ok {
		return InvalidDate
	}
	return t.Format("02") + " " + strings.ToUpper(t.Month().String()) + " " + YearToWords(t.Year())
}

// YearToWords spells out a year between 0 and 9999.
func YearToWords(year int) string {
	if year < 0 || year > 9999 {
		return ""
	}

	thousands := year / 1000
	hundreds := (year / 100) % 10
	rest := year % 100

	var b strings.Builder
	if thousands != 0 {
		b.WriteString(ones[thousands])
		b.WriteString(" THOUSAND ")
	}
	if hundreds != 0 {
		b.WriteString(ones[hundreds])
		b.WriteString(" HUNDRED ")
	}
	if rest >= 10 && rest <= 19 {
		b.WriteString(teens[rest-10])
	} else {
		if t := rest / 10; t != 0 {
			b.WriteString(tens[t])
			b.WriteString(" ")
		}
		if u := rest % 10; u != 0 {
			b.WriteString(ones[u])
		}
	}
	return strings.TrimSpace(b.String())
}

// Derive returns the words form of dob, or "" when dob is blank.
func Derive(dob string) string {
	if strings.TrimSpace(dob) == "" {
		return ""
	}
	return ToWords(dob)
}
