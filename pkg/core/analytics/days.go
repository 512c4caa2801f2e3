package analytics

import "time"

const dayLayout = "2006-01-02"

// DayKey is the calendar date of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// HourOf is the hour of day of t in loc.
func HourOf(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// TrailingDays returns the n calendar dates ending with the day of now,
// oldest first. Dates are stepped on the calendar so DST changes never skip
// or repeat a day.
func TrailingDays(now time.Time, loc *time.Location, n int) []string {
	if n <= 0 {
		return nil
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, loc)
	days := make([]string, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDate(0, 0, i-(n-1)).Format(dayLayout)
	}
	return days
}

// DisplayDate renders a day key as "Jan 2".
func DisplayDate(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2")
}
