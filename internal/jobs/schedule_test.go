package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaily_Next(t *testing.T) {
	d := Daily{Hour: 8}
	before := time.Date(2025, 3, 10, 7, 59, 0, 0, time.UTC)
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, at, d.Next(before))
	assert.Equal(t, at.AddDate(0, 0, 1), d.Next(at))
	assert.Equal(t, "daily 08:00", d.String())
}

func TestWeekly_Next(t *testing.T) {
	w := Weekly{Weekday: time.Friday, Hour: 9}
	monday := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	friday9 := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, friday9, w.Next(monday))
	assert.Equal(t, friday9, w.Next(friday9.Add(-time.Second)))
	assert.Equal(t, friday9.AddDate(0, 0, 7), w.Next(friday9))
	assert.Equal(t, "weekly Friday 09:00", w.String())
}

func TestEvery_Next(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), Every(time.Hour).Next(now))
	assert.Equal(t, "every 1h0m0s", Every(time.Hour).String())
}

func TestWeekRange(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 16, 23, 59, 59, int(999*time.Millisecond), time.UTC)

	for _, day := range []time.Time{
		monday,
		time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC),
		time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC),
	} {
		from, to := WeekRange(day)
		assert.Equal(t, monday, from, day.Weekday().String())
		assert.Equal(t, end, to, day.Weekday().String())
	}
}
