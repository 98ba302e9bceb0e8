/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var countsPattern = regexp.MustCompile(`(\d+) counts`)

// Standing is one leaderboard row.
type Standing struct {
	Rank     int
	Name     string
	Image    string
	Bookings int
	Counts   int
}

// ChargeCount returns how many counts a charge line stands for.
func ChargeCount(charge string) int {
	m := countsPattern.FindStringSubmatch(strings.ToLower(charge))
	if m == nil {
		return 1
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}

	return n
}

// Leaderboard ranks the roster by bookings, breaking ties on total counts,
// and returns at most limit rows. A limit of zero or less returns everyone.
//
// Tied rows share the position of the first row in their group, so ranks
// can skip (1, 1, 3).
func Leaderboard(roster Roster, limit int) []Standing {
	rows := make([]Standing, 0, len(roster))
	for _, e := range roster {
		counts := 0
		for _, c := range e.Charges {
			counts += ChargeCount(c)
		}

		rows = append(rows, Standing{
			Name:     e.Name,
			Image:    e.Image,
			Bookings: len(e.Charges),
			Counts:   counts,
		})
	}

	slices.SortStableFunc(rows, func(a, b Standing) int {
		if a.Bookings != b.Bookings {
			return b.Bookings - a.Bookings
		}
		return b.Counts - a.Counts
	})

	for i := range rows {
		if i > 0 && rows[i].Bookings == rows[i-1].Bookings && rows[i].Counts == rows[i-1].Counts {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return rows
}
