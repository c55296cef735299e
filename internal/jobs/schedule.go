package jobs

import "time"

// Schedule yields the next run strictly after the given instant.
type Schedule interface {
	Next(after time.Time) time.Time
	String() string
}

// Daily fires once a day at Hour:Minute in the location of the instant passed to Next.
type Daily struct {
	Hour, Minute int
}

func (d Daily) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) String() string {
	return "daily " + clock(d.Hour, d.Minute)
}

// Weekly fires once a week on Weekday at Hour:Minute.
type Weekly struct {
	Weekday      time.Weekday
	Hour, Minute int
}

func (w Weekly) Next(after time.Time) time.Time {
	days := (int(w.Weekday) - int(after.Weekday()) + 7) % 7
	next := time.Date(after.Year(), after.Month(), after.Day()+days, w.Hour, w.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (w Weekly) String() string {
	return "weekly " + w.Weekday.String() + " " + clock(w.Hour, w.Minute)
}

// Every fires at a fixed interval.
type Every time.Duration

func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

func clock(h, m int) string {
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format("15:04")
}

// WeekRange returns Monday 00:00 through Sunday 23:59:59.999 of the week containing t.
func WeekRange(t time.Time) (from, to time.Time) {
	offset := (int(t.Weekday()) + 6) % 7 // days since Monday
	from = time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	to = from.AddDate(0, 0, 7).Add(-time.Millisecond)
	return from, to
}
