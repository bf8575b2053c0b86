package format

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.MustParse("en-AU"))

// Money renders cents with two decimals and thousands separators,
// e.g. 687500 -> "6,875.00".
func Money(cents int64) string {
	return printer.Sprint(number.Decimal(float64(cents)/100, number.Scale(2)))
}

// Days renders a days worked figure to one decimal place.
func Days(days float64) string {
	return fmt.Sprintf("%.1f", days)
}

// Hours renders worked minutes as decimal hours to two places.
func Hours(minutes int) string {
	return fmt.Sprintf("%.2f", float64(minutes)/60)
}

// Percent renders a GST fraction as a whole percentage, e.g. 0.1 -> "10".
func Percent(fraction float64) string {
	return fmt.Sprintf("%.0f", fraction*100)
}

// WeekEnding renders a date as "02 Jan".
func WeekEnding(t time.Time) string {
	return t.Format("02 Jan")
}
