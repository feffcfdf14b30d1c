package cluster

import (
	"fmt"
	"time"

	"github.com/runnerr0/snapsort/internal/media"
)

// folderName derives the target folder for a qualifying cluster. members
// must be non-empty and sorted by timestamp.
//
//	single day:            YYYY/MM-DD[-Place]
//	spans multiple days:   YYYY/Event_<start>_to_<end>[-Place]
func folderName(members []*media.Record, sameDayHours int) string {
	start := members[0].Timestamp
	end := members[len(members)-1].Timestamp

	place := dominantPlace(members)

	if isSingleDay(start, end, sameDayHours) {
		name := start.Format("2006/01-02")
		if place != "" {
			name += "-" + place
		}
		return name
	}

	name := fmt.Sprintf("%s/Event_%s_to_%s",
		start.Format("2006"),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))
	if place != "" {
		name += "-" + place
	}
	return name
}

// isSingleDay reports whether a cluster collapses to one day label: either
// all timestamps share a calendar date, or the span crosses midnight by less
// than the configured hour threshold.
func isSingleDay(start, end time.Time, sameDayHours int) bool {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return true
	}
	return end.Sub(start) < time.Duration(sameDayHours)*time.Hour
}

// dominantPlace returns the most frequent non-empty place name among the
// members, ties broken by first occurrence. Empty when no member carries a
// place name.
func dominantPlace(members []*media.Record) string {
	counts := make(map[string]int)
	var order []string

	for _, m := range members {
		if !m.HasPlace() {
			continue
		}
		if _, seen := counts[m.PlaceName]; !seen {
			order = append(order, m.PlaceName)
		}
		counts[m.PlaceName]++
	}

	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}
