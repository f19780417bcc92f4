package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts for display in one locale and currency, without fraction digits.
// It never changes the amount it is given; rounding only affects the returned string.
type Formatter struct {
	tag     language.Tag
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 locale such as "en-IN" and an ISO 4217 code such as "INR".
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return &Formatter{tag: tag, unit: unit, printer: message.NewPrinter(tag)}, nil
}

// MustFormatter is NewFormatter for compile-time constants.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Formatter) Currency() string { return f.unit.String() }

func (f *Formatter) Locale() string { return f.tag.String() }

// Format returns e.g. "₹1,23,457" for 123456.7 in en-IN/INR.
// Amounts that round to zero never carry a minus sign.
func (f *Formatter) Format(amount float64) string {
	whole := math.Round(amount)
	sign := ""
	if whole < 0 {
		sign = "-"
	}
	return sign + f.printer.Sprintf("%v%v",
		currency.NarrowSymbol(f.unit),
		number.Decimal(math.Abs(whole), number.MaxFractionDigits(0)))
}

// ParseDisplay reads back a string produced by Format. Only digits and a leading minus
// sign are significant, which is enough because Format never emits fraction digits.
func ParseDisplay(s string) (float64, error) {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, err
	}
	if negative {
		v = -v
	}
	return v, nil
}
