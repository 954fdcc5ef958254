// Package activity derives commit-activity metrics from a daily
// contribution series.
package activity

import (
	"cmp"
	"slices"
	"time"

	"github.com/vanpelt/aura/internal/models"
)

// DefaultWeekendThreshold is the share of activity on Saturday and Sunday
// above which a user counts as a weekend warrior.
const DefaultWeekendThreshold = 0.40

const dateLayout = "2006-01-02"

// Day is one (date, count) pair of the series
type Day struct {
	Date  time.Time
	Count int
}

// Deriver computes CommitActivity. Now decides what "today" is for the
// current streak; it defaults to time.Now in UTC.
type Deriver struct {
	WeekendThreshold float64
	Now              func() time.Time
}

// New returns a Deriver with the default threshold
func New() *Deriver {
	return &Deriver{WeekendThreshold: DefaultWeekendThreshold}
}

// FromCalendar converts calendar days, skipping any whose date does not
// parse; validated payloads never contain one. Order is preserved.
func FromCalendar(days []models.ContributionDay) []Day {
	out := make([]Day, 0, len(days))
	for _, d := range days {
		t, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		out = append(out, Day{Date: t, Count: d.Count})
	}
	return out
}

// Derive computes every metric over days. The input is sorted (stably) by
// date first, so callers may pass weeks in any order.
func (d *Deriver) Derive(days []Day) models.CommitActivity {
	sorted := slices.Clone(days)
	slices.SortStableFunc(sorted, func(a, b Day) int {
		return a.Date.Compare(b.Date)
	})

	buckets := WeekdayTotals(sorted)
	total := 0
	for _, n := range buckets {
		total += n
	}

	return models.CommitActivity{
		TotalContributions: total,
		MaxStreak:          MaxStreak(sorted),
		CurrentStreak:      CurrentStreak(sorted, d.today()),
		MostActiveDay:      MostActiveWeekday(buckets).String(),
		IsWeekendWarrior:   IsWeekendWarrior(buckets, d.threshold()),
	}
}

func (d *Deriver) today() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deriver) threshold() float64 {
	if d.WeekendThreshold <= 0 {
		return DefaultWeekendThreshold
	}
	return d.WeekendThreshold
}

// MaxStreak is the longest run of consecutive days with a nonzero count.
// days must be chronological.
func MaxStreak(days []Day) int {
	best, run := 0, 0
	for _, day := range days {
		if day.Count > 0 {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

// CurrentStreak counts nonzero days backwards from the most recent entry. If
// that entry is today and still zero it is skipped: the day is not over.
func CurrentStreak(days []Day, today time.Time) int {
	end := len(days) - 1
	if end >= 0 && days[end].Count == 0 && days[end].Date.Format(dateLayout) == today.Format(dateLayout) {
		end--
	}
	streak := 0
	for i := end; i >= 0 && days[i].Count > 0; i-- {
		streak++
	}
	return streak
}

// WeekdayTotals buckets counts by weekday, Sunday first
func WeekdayTotals(days []Day) [7]int {
	var buckets [7]int
	for _, day := range days {
		if day.Count > 0 {
			buckets[day.Date.Weekday()] += day.Count
		}
	}
	return buckets
}

// MostActiveWeekday picks the largest bucket; ties go to the lowest index.
func MostActiveWeekday(buckets [7]int) time.Weekday {
	best := 0
	for i := 1; i < len(buckets); i++ {
		if buckets[i] > buckets[best] {
			best = i
		}
	}
	return time.Weekday(best)
}

// IsWeekendWarrior reports whether weekend activity exceeds threshold of the
// total. No activity is never a weekend warrior.
func IsWeekendWarrior(buckets [7]int, threshold float64) bool {
	total := 0
	for _, n := range buckets {
		total += n
	}
	if total == 0 {
		return false
	}
	weekend := buckets[time.Saturday] + buckets[time.Sunday]
	return float64(weekend) > float64(total)*threshold
}

// Velocity scales yearly commits onto 0..100 against maxPerYear, the cap used
// by the radar chart.
func Velocity(commits, maxPerYear int) int {
	if maxPerYear <= 0 || commits <= 0 {
		return 0
	}
	return min(100, commits*100/maxPerYear)
}

// SortDays orders a calendar's flattened days chronologically; used when
// stitching several year calendars together.
func SortDays(days []models.ContributionDay) {
	slices.SortStableFunc(days, func(a, b models.ContributionDay) int {
		return cmp.Compare(a.Date, b.Date)
	})
}
