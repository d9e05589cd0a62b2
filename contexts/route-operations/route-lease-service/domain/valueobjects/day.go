package valueobjects

import "time"

// DayLayout is the calendar-day format stored on lease rows.
const DayLayout = "2006-01-02"

// DayKey returns the tenant-local calendar day containing now.
func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DayLayout)
}

func ValidDay(day string) bool {
	_, err := time.Parse(DayLayout, day)
	return err == nil
}

// DayWindow returns [local midnight, next local midnight) for day in loc, in UTC.
// The window length follows DST changes, so it is not always 24h.
func DayWindow(day string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC(), nil
}
