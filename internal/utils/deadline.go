package utils

import "time"

// DefaultDeadlineDays is how far out a freshly stamped stage deadline lands.
const DefaultDeadlineDays = 14

// DefaultDeadline returns the default deadline relative to now.
func DefaultDeadline(now time.Time) time.Time {
	return now.AddDate(0, 0, DefaultDeadlineDays)
}

// SameDate reports calendar-date equality. Deadlines carry a time of day
// but only the date is surfaced or compared.
func SameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatDeadline renders a deadline as month-day, or 未设定 for nil.
func FormatDeadline(t *time.Time) string {
	if t == nil {
		return "未设定"
	}
	return t.Format("01-02")
}

// DaysBetween returns whole calendar days from a to b (positive when b is
// later), ignoring time of day.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}
