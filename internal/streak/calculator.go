package streak

import (
	"sort"
	"time"

	"fitsquad-backend/internal/models"
)

// Compute derives the full streak state from a user's non-archived
// check-ins. prevBest is the previously recorded best streak: recomputation
// may only raise the historical best, never lower it, so a deleted day can
// never shrink it.
func Compute(checkIns []models.CheckIn, prevBest int, now time.Time) models.Stats {
	days := make(map[int64]struct{}, len(checkIns))
	total := 0
	var last *time.Time

	for i := range checkIns {
		ci := &checkIns[i]
		if ci.IsArchived {
			continue
		}
		total++
		days[DayKey(ci.Timestamp)] = struct{}{}
		if last == nil || ci.Timestamp.After(*last) {
			ts := ci.Timestamp
			last = &ts
		}
	}

	// Current streak: walk backward from today while each day is present.
	// A missing today means the streak is already broken; no grace period.
	current := 0
	for day := Today(now); ; day -= DayMillis {
		if _, ok := days[day]; !ok {
			break
		}
		current++
	}

	best := longestRun(days)
	if prevBest > best {
		best = prevBest
	}

	return models.Stats{
		CurrentStreak: current,
		BestStreak:    best,
		TotalCheckIns: total,
		LastCheckIn:   last,
	}
}

// Advance applies the O(1) append path: valid only when a new check-in was
// just recorded for today and nothing else changed. hadYesterday reports
// whether the user has an active check-in on the previous day.
func Advance(prev models.Stats, hadYesterday bool, now time.Time) models.Stats {
	current := 1
	if hadYesterday {
		current = prev.CurrentStreak + 1
	}
	best := prev.BestStreak
	if current > best {
		best = current
	}
	ts := now
	return models.Stats{
		CurrentStreak: current,
		BestStreak:    best,
		TotalCheckIns: prev.TotalCheckIns + 1,
		LastCheckIn:   &ts,
	}
}

// longestRun returns the length of the longest run of consecutive day keys.
func longestRun(days map[int64]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	keys := make([]int64, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	longest, run := 1, 1
	for i := 1; i < len(keys); i++ {
		if IsConsecutiveDay(keys[i-1], keys[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
