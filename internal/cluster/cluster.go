// Package cluster partitions media records into events: a single forward
// pass over the timestamp-sorted record set, joining records by combined
// temporal and geographic proximity. Clustering is a pure function of its
// inputs, with no I/O and no randomness, so the same records and parameters always
// produce the same grouping.
package cluster

import (
	"sort"
	"time"

	"github.com/runnerr0/snapsort/internal/media"
)

// Params are the clustering thresholds.
type Params struct {
	// SameDayHours collapses a cluster that crosses midnight by less than
	// this many hours to a single-day label.
	SameDayHours int
	// EventMaxDays is the maximum gap, in days, between a record and the
	// cluster's latest member.
	EventMaxDays int
	// GeoRadiusKm is the maximum distance to the cluster's most recent
	// geo-tagged member, applied only when both sides carry GPS.
	GeoRadiusKm float64
	// MinEventPhotos is the minimum cluster size for a named event; smaller
	// clusters land in the ungrouped bucket.
	MinEventPhotos int
}

// Cluster groups records into named events. Records are referenced, not
// copied; within every group the order is ascending timestamp, with ties
// keeping their input order.
func Cluster(records []*media.Record, p Params) media.EventGroups {
	groups := make(media.EventGroups)
	if len(records) == 0 {
		return groups
	}

	sorted := make([]*media.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	maxGap := time.Duration(p.EventMaxDays) * 24 * time.Hour

	var open []*media.Record
	var lastGeo *media.LatLon // most recent geo-tagged member of the open cluster

	flush := func() {
		if len(open) == 0 {
			return
		}
		key := media.UngroupedBucket
		if len(open) >= p.MinEventPhotos {
			key = folderName(open, p.SameDayHours)
		}
		groups[key] = append(groups[key], open...)
		open = nil
		lastGeo = nil
	}

	for _, rec := range sorted {
		if len(open) == 0 {
			open = append(open, rec)
			lastGeo = rec.GPS
			continue
		}

		joins := rec.Timestamp.Sub(open[len(open)-1].Timestamp) <= maxGap
		if joins && rec.GPS != nil && lastGeo != nil {
			// Both sides carry GPS: the geographic rule applies. When either
			// side lacks coordinates no comparison is possible and the
			// temporal rule alone decides.
			joins = Distance(*rec.GPS, *lastGeo) <= p.GeoRadiusKm
		}

		if !joins {
			flush()
		}
		open = append(open, rec)
		if rec.GPS != nil {
			lastGeo = rec.GPS
		}
	}
	flush()

	return groups
}
