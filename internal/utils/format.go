
package utils

import (
	"fmt"
	"math"
	"strings"
)

var persianDigits = map[rune]rune{
	'0': '۰',
	'1': '۱',
	'2': '۲',
	'3': '۳',
	'4': '۴',
	'5': '۵',
	'6': '۶',
	'7': '۷',
	'8': '۸',
	'9': '۹',
}

func ToPersianDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if pr, ok := persianDigits[r]; ok {
			b.WriteRune(pr)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatPrice renders a price as an integer with thousands separators,
// switching to Persian digits for the "fa" locale.
func FormatPrice(value float64, locale string) string {
	out := formatIntWithCommas(int64(math.Round(value)))
	if locale == "fa" {
		out = ToPersianDigits(out)
	}
	return out
}

func formatIntWithCommas(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/3)
	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(sign)
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
