
package utils

import (
	"time"

	_ "time/tzdata"

	"github.com/go-universal/jalaali"
)

// TehranLoc returns the Tehran time zone location.
// Using the jalaali helper keeps behavior consistent even on minimal systems.
func TehranLoc() *time.Location {
	return jalaali.TehranTz()
}

// LocalizeTime renders t for display. For the "fa" locale this is a Jalali
// date in Tehran time with Persian digits, e.g. "۱۴۰۴/۱۰/۰۹ - ۱۶:۴۰";
// otherwise a plain local Gregorian timestamp.
func LocalizeTime(t time.Time, locale string) string {
	if locale == "fa" {
		j := jalaali.New(t.In(TehranLoc()))
		return ToPersianDigits(j.Format("2006/01/02 - 15:04"))
	}
	return t.Local().Format("2006-01-02 15:04")
}

// LocalizeEpochMS renders an epoch-milliseconds upload time for display.
// A zero value means the service never saw an upload; render it empty
// rather than as the epoch.
func LocalizeEpochMS(ms int64, locale string) string {
	if ms <= 0 {
		return ""
	}
	return LocalizeTime(time.UnixMilli(ms), locale)
}
