package media

import "time"

// LatLon is a GPS coordinate pair in signed decimal degrees.
// Latitude is in [-90, 90], longitude in [-180, 180].
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate pair is inside the legal ranges.
func (c LatLon) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Record describes one media file in the collection. Records are built once
// during the scan phase and are read-only afterward, except for PlaceName,
// which the location resolver sets exactly once for records that carry GPS.
type Record struct {
	Path        string    `json:"path"`
	Timestamp   time.Time `json:"timestamp"`
	GPS         *LatLon   `json:"gps,omitempty"`
	PlaceName   string    `json:"place_name,omitempty"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	IsVideo     bool      `json:"is_video"`
	IsDuplicate bool      `json:"is_duplicate"`
}

// HasPlace reports whether a place name has been resolved for this record.
// PlaceName is only ever set when GPS is present.
func (r *Record) HasPlace() bool {
	return r.PlaceName != ""
}

// UngroupedBucket is the sentinel folder key for records whose cluster fell
// below the minimum event size.
const UngroupedBucket = "ungrouped"

// EventGroups maps a folder name to the records assigned to it, ordered by
// ascending timestamp. Records are referenced, not copied; the record set
// retains ownership.
type EventGroups map[string][]*Record

// FileError records a per-file failure during scanning. Failures are
// aggregated and reported; they never abort the run.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}
