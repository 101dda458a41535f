package reminders

import "time"

// NextTrigger returns the next moment after now whose local wall clock in
// loc reads hour:minute:00. A candidate equal to now counts as already
// passed and moves to the following calendar day. On a day where
// hour:minute is skipped by a forward clock change, the trigger lands the
// same distance past the start of the gap (02:30 becomes 03:30 when 02:00
// jumps to 03:00).
func NextTrigger(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = now.Location()
	}
	local := now.In(loc)

	candidate := wallClock(local.Year(), local.Month(), local.Day(), hour, minute, loc)
	if !candidate.After(local) {
		candidate = wallClock(local.Year(), local.Month(), local.Day()+1, hour, minute, loc)
	}
	return candidate
}

func wallClock(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)

	want := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if diff := want.Sub(got); diff > 0 {
		// Resolved before the gap; move past it.
		t = t.Add(diff)
	}
	return t
}
