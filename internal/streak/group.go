package streak

import (
	"sort"
	"time"
)

// ComputeGroup fully recomputes a group's streak. memberDays maps each
// active member to the set of day keys on which they checked in to this
// group. The streak is the count of consecutive days, starting at the most
// recent day with full attendance, on which every active member checked in.
// A group with no active members keeps its current value.
func ComputeGroup(memberDays map[string]map[int64]struct{}, current int, now time.Time) int {
	if len(memberDays) == 0 {
		return current
	}

	union := make(map[int64]struct{})
	for _, days := range memberDays {
		for day := range days {
			union[day] = struct{}{}
		}
	}
	if len(union) == 0 {
		return 0
	}

	days := make([]int64, 0, len(union))
	for day := range union {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })

	streak := 0
	var expect int64
	for _, day := range days {
		if streak == 0 {
			if fullAttendance(memberDays, day) {
				streak = 1
				expect = day - DayMillis
			}
			continue
		}
		if day != expect || !fullAttendance(memberDays, day) {
			break
		}
		streak++
		expect = day - DayMillis
	}
	return streak
}

// AdvanceGroup applies the cheap post-create path: if today now has full
// attendance the streak grows by one, otherwise it is left untouched. An
// incomplete today never decrements; corrections happen on the next full
// recompute (triggered by any archive).
func AdvanceGroup(current int, memberDays map[string]map[int64]struct{}, now time.Time) int {
	if len(memberDays) == 0 {
		return current
	}
	if !fullAttendance(memberDays, Today(now)) {
		return current
	}
	return current + 1
}

func fullAttendance(memberDays map[string]map[int64]struct{}, day int64) bool {
	for _, days := range memberDays {
		if _, ok := days[day]; !ok {
			return false
		}
	}
	return true
}
