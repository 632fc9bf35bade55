
package utils

import (
	"strings"
	"testing"
	"time"
)

func TestFormatPrice(t *testing.T) {
	for _, tc := range []struct {
		value  float64
		locale string
		want   string
	}{
		{0, "en", "0"},
		{999, "en", "999"},
		{1000, "en", "1,000"},
		{1234567.4, "en", "1,234,567"},
		{-54321, "en", "-54,321"},
		{1000, "fa", "۱,۰۰۰"},
	} {
		if got := FormatPrice(tc.value, tc.locale); got != tc.want {
			t.Errorf("FormatPrice(%v, %s) = %q, want %q", tc.value, tc.locale, got, tc.want)
		}
	}
}

func TestToPersianDigits(t *testing.T) {
	if got := ToPersianDigits("12:30"); got != "۱۲:۳۰" {
		t.Fatalf("got %q", got)
	}
	if got := ToPersianDigits("abc"); got != "abc" {
		t.Fatalf("non-digits must pass through, got %q", got)
	}
}

func TestLocalizeEpochMS(t *testing.T) {
	if got := LocalizeEpochMS(0, "en"); got != "" {
		t.Fatalf("zero upload time should render empty, got %q", got)
	}
	if got := LocalizeEpochMS(-5, "fa"); got != "" {
		t.Fatalf("negative upload time should render empty, got %q", got)
	}

	ms := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	en := LocalizeEpochMS(ms, "en")
	if en == "" || !strings.Contains(en, "2025") {
		t.Fatalf("en rendering looks wrong: %q", en)
	}
	fa := LocalizeEpochMS(ms, "fa")
	if fa == "" || strings.ContainsAny(fa, "0123456789") {
		t.Fatalf("fa rendering should use Persian digits: %q", fa)
	}
}
