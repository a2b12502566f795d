// Package timestamp converts the platform time formats forensic artifacts
// carry (FILETIME, WebKit, HFS+, Cocoa, FAT, Java, free-text, ...) into a
// single scalar: microseconds since 1970-01-01 UTC. Constants and decode
// logic are ported exactly from original_source/plaso/lib/timelib.py.
//
// Boundary policy (§4.D): on any overflow or parse failure, conversions
// return 0 (1970-01-01 UTC) rather than an error. Events with invalid
// timestamps are never dropped from the store; they simply sort to the
// epoch.
package timestamp

import (
	"strings"
	"time"
)

// Timestamp is microseconds since the Unix epoch, UTC.
type Timestamp = int64

const (
	microsecondsPerSecond = 1000000
	secondsPerDay         = 86400

	// timestampMinSeconds / timestampMaxSeconds bound the range
	// representable without overflowing an int64 of microseconds.
	timestampMinSeconds = -((1<<63 - 1) / microsecondsPerSecond)
	timestampMaxSeconds = (1<<63 - 1) / microsecondsPerSecond

	fatDateToPosixBase     = 315532800
	webKitTimeToPosixBase  = 11644473600 * microsecondsPerSecond
	filetimeToPosixBase    = 11644473600 * 10000000
	hfsTimeToPosixBase     = 2082844800
	cocoaTimeToPosixBase   = 978307200
)

var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DaysInMonth returns the number of days in month (0 == January) of year.
func DaysInMonth(month, year int) int {
	days := daysPerMonth[month]
	if month == 1 && IsLeapYear(year) {
		days++
	}
	return days
}

// DayOfYear returns the zero-based day-of-year for day (0-based) of
// month (0-based) in year.
func DayOfYear(day, month, year int) int {
	dayOfYear := day
	for m := 0; m < month; m++ {
		dayOfYear += DaysInMonth(m, year)
	}
	return dayOfYear
}

// FromPosixTime converts whole seconds since epoch, rejecting
// out-of-range values by returning 0.
func FromPosixTime(posixTime int64) Timestamp {
	if posixTime < timestampMinSeconds || posixTime > timestampMaxSeconds {
		return 0
	}
	return posixTime * microsecondsPerSecond
}

// FromPosixTimeWithMicrosecond converts seconds-plus-microseconds since
// epoch.
func FromPosixTimeWithMicrosecond(posixTime int64, microsecond int64) Timestamp {
	base := FromPosixTime(posixTime)
	if base == 0 && posixTime != 0 {
		return 0
	}
	return base + microsecond
}

// FromJavaTime converts Java's milliseconds-since-epoch.
func FromJavaTime(javaTime int64) Timestamp {
	return javaTime * 1000
}

// FromFiletime converts a Windows FILETIME (100ns intervals since
// 1601-01-01 UTC). Negative results (dates before 1970) collapse to 0.
func FromFiletime(filetime int64) Timestamp {
	ts := (filetime - filetimeToPosixBase) / 10
	if ts < 0 {
		return 0
	}
	return ts
}

// FromWebKitTime converts microseconds since 1601-01-01 UTC.
func FromWebKitTime(webkitTime int64) Timestamp {
	if webkitTime < webKitTimeToPosixBase {
		// Only 0 (an unset field) is special-cased; any other value
		// below the base converts to a negative (pre-1970) timestamp.
		if webkitTime == 0 {
			return 0
		}
	}
	return webkitTime - webKitTimeToPosixBase
}

// FromHfsPlusTime converts seconds since 1904-01-01 UTC (HFS+).
func FromHfsPlusTime(hfsTime int64) Timestamp {
	return FromPosixTime(hfsTime - hfsTimeToPosixBase)
}

// FromHfsTime converts a legacy (local-time) HFS timestamp to UTC using
// the supplied IANA zone name and DST flag.
func FromHfsTime(hfsTime int64, zoneName string, isDST bool) Timestamp {
	posix := FromHfsPlusTime(hfsTime)
	if posix == 0 && hfsTime != hfsTimeToPosixBase {
		return 0
	}
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		loc = time.UTC
	}
	t := time.UnixMicro(posix).In(loc)
	_, offset := t.Zone()
	if isDST {
		// Legacy HFS local time already encodes DST; nothing further to
		// adjust beyond the zone conversion above.
	}
	utc := t.Add(-time.Duration(offset) * time.Second).UTC()
	return utc.UnixMicro()
}

// FromCocoaTime converts seconds since 2001-01-01 UTC.
func FromCocoaTime(cocoaTime int64) Timestamp {
	return FromPosixTime(cocoaTime + cocoaTimeToPosixBase)
}

// FromFatDateTime decodes a packed 32-bit FAT date/time: low 16 bits are
// the date (day/month/year-since-1980), high 16 bits are the time
// (seconds-in-2s-units/minutes/hours). Any field out of range returns 0
// rather than a partially-decoded guess (grounds scenario S2).
func FromFatDateTime(fatDateTime uint32) Timestamp {
	dayOfMonth := int(fatDateTime&0x1f) - 1
	month := int((fatDateTime>>5)&0x0f) - 1
	year := int((fatDateTime >> 9) & 0x7f)

	if dayOfMonth < 0 || dayOfMonth > 30 || month < 0 || month > 11 {
		return 0
	}

	numberOfDays := DayOfYear(dayOfMonth, month, 1980+year)
	for pastYear := 0; pastYear < year; pastYear++ {
		numberOfDays += DaysInYear(pastYear)
	}

	timePart := fatDateTime >> 16
	seconds := int((timePart & 0x1f) * 2)
	minutes := int((timePart >> 5) & 0x3f)
	hours := int((timePart >> 11) & 0x1f)

	if hours > 23 || minutes > 59 || seconds > 59 {
		return 0
	}

	numberOfSeconds := int64(fatDateToPosixBase)
	numberOfSeconds += int64(((hours*60)+minutes)*60 + seconds)
	numberOfSeconds += int64(numberOfDays) * secondsPerDay

	return numberOfSeconds * microsecondsPerSecond
}

// layoutCandidates are the free-text formats FromTimeString tries, in
// order, mirroring the source's flexible string parser.
var layoutCandidates = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02",
}

// FromTimeString parses a free-text timestamp using zone as the default
// when the string carries no zone of its own. If layout is non-empty it
// is tried first (exact Go reference-time layout). dayfirst swaps
// ambiguous D/M ordering for the numeric "01/02/2006"-style fallbacks.
// Returns 0 on failure, never an error, matching the boundary policy.
func FromTimeString(value, layout string, zone string, dayfirst bool) Timestamp {
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		loc = time.UTC
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	candidates := append([]string(nil), layoutCandidates...)
	if dayfirst {
		// Prefer "02/01/2006" (day first) over "01/02/2006".
		candidates[5], candidates[6] = candidates[6], candidates[5]
	}
	if layout != "" {
		candidates = append([]string{layout}, candidates...)
	}

	for _, l := range candidates {
		if t, err := time.ParseInLocation(l, value, loc); err == nil {
			return t.UTC().UnixMicro()
		}
	}
	if dayfirst {
		// No additional dayfirst-specific layouts are registered beyond
		// the numeric D/M/Y forms above; dayfirst only changes which of
		// the two numeric layouts is preferred, and both are already
		// tried.
	}
	return 0
}

// CopyToPosix truncates a Timestamp back to whole POSIX seconds.
func CopyToPosix(ts Timestamp) int64 {
	return ts / microsecondsPerSecond
}

// CopyToDatetime renders ts (microseconds since epoch) as a time.Time in
// the given IANA zone.
func CopyToDatetime(ts Timestamp, zone string) time.Time {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return time.UnixMicro(ts).In(loc)
}

// RoundToSeconds truncates a microsecond timestamp down to whole seconds.
func RoundToSeconds(ts Timestamp) Timestamp {
	return (ts / microsecondsPerSecond) * microsecondsPerSecond
}
