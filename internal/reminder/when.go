package reminder

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// When is a parsed time expression, still free of any zone.
type When struct {
	// DayOffset from today, used when Date is unset.
	DayOffset int
	Year      int
	Month     time.Month
	Day       int
	Hour      int
	Minute    int
}

var (
	dateRe     = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	hourRe     = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?`)
	pmRe       = regexp.MustCompile(`\bpm\b|p\.\s?m\.|de la (tarde|noche)`)
	amRe       = regexp.MustCompile(`\bam\b|a\.\s?m\.|de la (mañana|manana|madrugada)`)
	dayAfterRe = regexp.MustCompile(`pasado (mañana|manana)|day after tomorrow`)
	tomorrowRe = regexp.MustCompile(`mañana|manana|tomorrow`)
	todayRe    = regexp.MustCompile(`\bhoy\b|\btoday\b`)
)

// ParseWhen reads expressions such as "mañana", "hoy a las 18:30",
// "2026-05-02 a las 10" or "a las 7 de la tarde". The first matching form
// wins: relative day, explicit date, hour only (tomorrow at that hour), and
// finally tomorrow at defaultHour.
func ParseWhen(expr string, defaultHour int) When {
	s := strings.ToLower(strings.TrimSpace(expr))
	w := When{DayOffset: 1, Hour: defaultHour}

	// "de la mañana" is a meridiem, not a day
	meridiem := ""
	switch {
	case pmRe.MatchString(s):
		meridiem = "pm"
		s = pmRe.ReplaceAllString(s, " ")
	case amRe.MatchString(s):
		meridiem = "am"
		s = amRe.ReplaceAllString(s, " ")
	}

	switch {
	case dayAfterRe.MatchString(s):
		w.DayOffset = 2
		w.setClock(s, meridiem, defaultHour)
	case tomorrowRe.MatchString(s):
		w.DayOffset = 1
		w.setClock(s, meridiem, defaultHour)
	case todayRe.MatchString(s):
		w.DayOffset = 0
		w.setClock(s, meridiem, defaultHour)
	case dateRe.MatchString(s):
		m := dateRe.FindStringSubmatch(s)
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if validDate(y, mo, d) {
			w.Year, w.Month, w.Day = y, time.Month(mo), d
		}
		w.setClock(dateRe.ReplaceAllString(s, " "), meridiem, defaultHour)
	default:
		w.setClock(s, meridiem, defaultHour)
	}
	return w
}

func (w *When) setClock(s, meridiem string, defaultHour int) {
	m := hourRe.FindStringSubmatch(s)
	if m == nil {
		return
	}
	h, _ := strconv.Atoi(m[1])
	mins := 0
	if m[2] != "" {
		mins, _ = strconv.Atoi(m[2])
	}
	switch {
	case meridiem == "pm" && h < 12:
		h += 12
	case meridiem == "am" && h == 12:
		h = 0
	}
	if h > 23 || mins > 59 {
		w.Hour, w.Minute = defaultHour, 0
		return
	}
	w.Hour, w.Minute = h, mins
}

func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d
}

// HasDate reports whether an explicit calendar date was given.
func (w When) HasDate() bool { return w.Year > 0 }

// In resolves w to an instant using the calendar of loc at now.
func (w When) In(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if w.HasDate() {
		return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, 0, 0, loc)
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+w.DayOffset, w.Hour, w.Minute, 0, 0, loc)
}
